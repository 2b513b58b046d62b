package datamodel

import (
	"fmt"
	"math"
	"sync"

	"github.com/zeusync/scenecore/internal/core/instance"
)

// Lighting holds global lighting settings.
type Lighting struct {
	mu         sync.RWMutex
	node       *instance.Instance
	brightness float64
	clockTime  float64
}

func newLighting() *Lighting {
	return &Lighting{brightness: 2, clockTime: 14}
}

type lightingProps struct {
	Brightness float64 `mapstructure:"Brightness"`
	ClockTime  float64 `mapstructure:"ClockTime"`
}

func (l *Lighting) Bind(n *instance.Instance) { l.node = n }

func (l *Lighting) Brightness() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.brightness
}

// ClockTime is the time of day in hours, in [0, 24).
func (l *Lighting) ClockTime() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clockTime
}

// SetClockTime wraps hours into [0, 24). Non-finite values are ignored.
func (l *Lighting) SetClockTime(hours float64) {
	if !finite(hours) {
		return
	}
	hours = math.Mod(hours, 24)
	if hours < 0 {
		hours += 24
	}
	// -tiny+24 rounds to 24
	if hours >= 24 {
		hours = 0
	}
	l.mu.Lock()
	changed := l.clockTime != hours
	l.clockTime = hours
	l.mu.Unlock()
	if changed {
		l.node.Changed.Fire("ClockTime")
	}
}

// SetBrightness clamps v at zero. NaN is ignored.
func (l *Lighting) SetBrightness(v float64) {
	if math.IsNaN(v) {
		return
	}
	if v < 0 {
		v = 0
	}
	l.mu.Lock()
	changed := l.brightness != v
	l.brightness = v
	l.mu.Unlock()
	if changed {
		l.node.Changed.Fire("Brightness")
	}
}

func (l *Lighting) Properties() map[string]any {
	return map[string]any{"Brightness": l.Brightness(), "ClockTime": l.ClockTime()}
}

func (l *Lighting) SetProperties(props map[string]any) error {
	p := lightingProps{Brightness: l.Brightness(), ClockTime: l.ClockTime()}
	if err := decodeProps(props, &p); err != nil {
		return err
	}
	if !finite(p.Brightness) || !finite(p.ClockTime) {
		return fmt.Errorf("lighting: Brightness and ClockTime must be finite")
	}
	l.SetBrightness(p.Brightness)
	l.SetClockTime(p.ClockTime)
	return nil
}

// Players tracks the Player nodes parented to it.
type Players struct {
	node *instance.Instance
}

func (p *Players) Bind(n *instance.Instance) { p.node = n }

// List returns the current players in join order.
func (p *Players) List() []*instance.Instance {
	var out []*instance.Instance
	for _, ch := range p.node.GetChildren() {
		if ch.IsA(KindPlayer) {
			out = append(out, ch)
		}
	}
	return out
}

// AddPlayer creates a Player for a joining user.
func (p *Players) AddPlayer(name string, userID int64) (*instance.Instance, error) {
	n, err := p.node.Context().New(KindPlayer)
	if err != nil {
		return nil, err
	}
	n.SetName(name)
	if player, ok := instance.As[*Player](n); ok {
		player.SetUserID(userID)
	}
	if err := n.SetParent(p.node); err != nil {
		_ = n.Destroy()
		return nil, err
	}
	return n, nil
}

// Player is a connected user. It only lives under the Players service.
type Player struct {
	mu     sync.RWMutex
	userID int64
}

type playerProps struct {
	UserID int64 `mapstructure:"UserID"`
}

func (p *Player) UserID() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID
}

func (p *Player) SetUserID(id int64) {
	p.mu.Lock()
	p.userID = id
	p.mu.Unlock()
}

func (p *Player) FilterParent(_, parent *instance.Instance) bool {
	return parent == nil || parent.IsA(KindPlayers)
}

func (p *Player) Properties() map[string]any {
	return map[string]any{"UserID": p.UserID()}
}

func (p *Player) SetProperties(props map[string]any) error {
	decoded := playerProps{UserID: p.UserID()}
	if err := decodeProps(props, &decoded); err != nil {
		return err
	}
	p.SetUserID(decoded.UserID)
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
