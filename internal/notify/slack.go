// Package notify pushes pending proposals to the reviewers' Slack channel.
package notify

import (
	"context"
	"fmt"
	"strings"

	slacklib "github.com/slack-go/slack"

	"github.com/campusops/aula/internal/domain"
)

// SlackAPI abstracts the subset of the Slack client used here, so tests run
// without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackNotifier posts one message per pending proposal to the review channel.
type SlackNotifier struct {
	api     SlackAPI
	channel string
}

func NewSlackNotifier(api SlackAPI, channel string) *SlackNotifier {
	return &SlackNotifier{api: api, channel: channel}
}

// NotifyProposal posts a summary of a newly created approval request.
func (n *SlackNotifier) NotifyProposal(_ context.Context, req *domain.ApprovalRequest) error {
	_, _, err := n.api.PostMessage(n.channel, slacklib.MsgOptionText(formatProposal(req), false))
	if err != nil {
		return fmt.Errorf("notify.SlackNotifier.NotifyProposal: %w", err)
	}

	return nil
}

func formatProposal(req *domain.ApprovalRequest) string {
	var sb strings.Builder
	sb.WriteString(":inbox_tray: New pending approval\n")
	fmt.Fprintf(&sb, "*%s* %s", req.Descriptor.Op, req.Descriptor.Entity)
	if req.Descriptor.TargetID != nil {
		fmt.Fprintf(&sb, " `%s`", req.Descriptor.TargetID)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Request `%s` proposed by `%s`", req.ID, req.ProposedBy)

	if len(req.Descriptor.Fields) > 0 {
		sb.WriteString("\nFields: ")
		first := true
		for name := range req.Descriptor.Fields {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(name)
			first = false
		}
	}

	return sb.String()
}
