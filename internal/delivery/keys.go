package delivery

import (
	"fmt"

	"github.com/micmonay/keybd_event"
)

// PasteInjector sends Ctrl+V through a synthetic key event.
type PasteInjector struct {
	kb keybd_event.KeyBonding
}

func NewPasteInjector() (*PasteInjector, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("init key bonding: %w", err)
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	return &PasteInjector{kb: kb}, nil
}

func (p *PasteInjector) Paste() error {
	if err := p.kb.Launching(); err != nil {
		return fmt.Errorf("send paste chord: %w", err)
	}
	return nil
}
