package session

import (
	"fmt"

	"github.com/automoto/convoy-mp/shared/messages"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/systems"
)

// Profiles keeps the latest profile per player id.
type Profiles struct {
	byID map[string]systems.Profile
}

func NewProfiles() *Profiles {
	return &Profiles{byID: make(map[string]systems.Profile)}
}

// Apply stores msg. A held item that fails to decode is replaced by an
// empty hand; the rest of the profile is kept and the error returned.
func (p *Profiles) Apply(msg messages.PlayerProfile) error {
	held, err := netcomponents.DecodeHoldable(netcomponents.ItemKind(msg.HeldKind), msg.HeldData)
	if err != nil {
		held = netcomponents.Empty{}
		err = fmt.Errorf("profile %q: %w", msg.ID, err)
	}
	p.byID[msg.ID] = systems.Profile{
		Nickname: msg.Nickname,
		Color:    msg.Color,
		Coins:    msg.Coins,
		Held:     held,
	}
	return err
}

func (p *Profiles) Profile(id string) (systems.Profile, bool) {
	prof, ok := p.byID[id]
	return prof, ok
}

func (p *Profiles) Len() int { return len(p.byID) }

func (p *Profiles) Clear() {
	clear(p.byID)
}
