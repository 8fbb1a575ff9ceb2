package app

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-runewidth"

	"mirror/internal/types"
)

const pickerTitleWidth = 40

// sessionPickerController presents the session list and resolves the
// user's choice through callbacks, so the model owns all side effects.
type sessionPickerController struct {
	active   bool
	sessions []*types.SessionInfo
	cursor   int
	choose   func(sessionID string)
	create   func()
}

func (p *sessionPickerController) Open(sessions []*types.SessionInfo, currentID string, choose func(string), create func()) {
	if p == nil {
		return
	}
	p.active = true
	p.sessions = sessions
	p.choose = choose
	p.create = create
	p.cursor = 0
	for i, info := range sessions {
		if info != nil && info.ID == currentID {
			p.cursor = i
			break
		}
	}
}

func (p *sessionPickerController) Close() {
	if p == nil {
		return
	}
	p.active = false
	p.sessions = nil
	p.choose = nil
	p.create = nil
	p.cursor = 0
}

func (p *sessionPickerController) Active() bool {
	return p != nil && p.active
}

func (p *sessionPickerController) HandleKey(msg tea.KeyMsg) bool {
	if p == nil || !p.active {
		return false
	}
	switch msg.String() {
	case "esc", "q":
		p.Close()
		return true
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
		return true
	case "down", "j":
		if p.cursor < len(p.sessions)-1 {
			p.cursor++
		}
		return true
	case "n":
		create := p.create
		p.Close()
		if create != nil {
			create()
		}
		return true
	case "enter":
		if p.cursor >= 0 && p.cursor < len(p.sessions) {
			id := p.sessions[p.cursor].ID
			choose := p.choose
			p.Close()
			if choose != nil {
				choose(id)
			}
		}
		return true
	}
	return true
}

func (p *sessionPickerController) View() string {
	if p == nil || !p.active {
		return ""
	}
	out := pickerTitleStyle.Render("Sessions") + "\n\n"
	if len(p.sessions) == 0 {
		out += helpStyle.Render("no sessions yet — press n to create one") + "\n"
	}
	for i, info := range p.sessions {
		title := info.Title
		if title == "" {
			title = info.ID
		}
		title = runewidth.Truncate(title, pickerTitleWidth, "…")
		line := fmt.Sprintf("%s  %s(%d msgs, rev %d)", title, forkBadge(info), info.Messages, info.Revision)
		if i == p.cursor {
			out += pickerCurrentStyle.Render("> "+line) + "\n"
		} else {
			out += pickerItemStyle.Render("  "+line) + "\n"
		}
	}
	out += "\n" + helpStyle.Render("enter open · n new · esc close")
	return out
}

func forkBadge(info *types.SessionInfo) string {
	if info == nil || info.ForkedFrom == "" {
		return ""
	}
	return "⑂ "
}
