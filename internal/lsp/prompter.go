package lsp

import (
	"context"
	"fmt"

	"github.com/mamaar/constprop/pkg/inspection"
)

const (
	previewTitle = "Preview"
	cancelTitle  = "Cancel"
)

// messagePrompter presents the dialog with window/showMessageRequest. The
// scope buttons confirm and the name is the suggested one.
type messagePrompter struct {
	s *Server
}

func (p *messagePrompter) Ask(ctx context.Context, d inspection.Dialog) (inspection.Decision, error) {
	actions := make([]MessageActionItem, 0, len(d.Options)+2)
	for _, opt := range d.Options {
		actions = append(actions, MessageActionItem{Title: opt.Label})
	}
	actions = append(actions, MessageActionItem{Title: previewTitle}, MessageActionItem{Title: cancelTitle})

	params := ShowMessageRequestParams{
		Type:    MessageInfo,
		Message: fmt.Sprintf("Introduce constant %s for %s", d.Name, d.Literal.Text),
		Actions: actions,
	}
	var item *MessageActionItem
	if err := p.s.call(ctx, "window/showMessageRequest", params, &item); err != nil {
		return inspection.Decision{Action: inspection.ActionCancel}, err
	}
	if item == nil {
		return inspection.Decision{Action: inspection.ActionCancel}, nil
	}

	switch item.Title {
	case previewTitle:
		return inspection.Decision{Action: inspection.ActionPreview, Name: d.Name, Scope: d.Scope}, nil
	case cancelTitle:
		return inspection.Decision{Action: inspection.ActionCancel}, nil
	}
	for _, opt := range d.Options {
		if opt.Label == item.Title {
			return inspection.Decision{Action: inspection.ActionOK, Name: d.Name, Scope: opt.Scope}, nil
		}
	}
	return inspection.Decision{Action: inspection.ActionCancel}, nil
}

func (p *messagePrompter) Show(ctx context.Context, text string) error {
	return p.s.notify("window/showMessage", ShowMessageParams{Type: MessageInfo, Message: text})
}
