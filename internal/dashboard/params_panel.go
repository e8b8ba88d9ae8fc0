package dashboard

import (
	"context"
	"sync"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// Role is the operator's access level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole defaults unknown values to RoleUser.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// ParamBackend loads and stores system parameters.
type ParamBackend interface {
	Get(ctx context.Context) (domain.SystemParameters, error)
	Update(ctx context.Context, params domain.SystemParameters) (domain.SystemParameters, error)
}

// ParamsState is the serializable view of the parameters panel. Non-admin
// roles only see Available=false.
type ParamsState struct {
	Available bool                     `json:"available"`
	Visible   bool                     `json:"visible"`
	Editing   bool                     `json:"editing"`
	Saving    bool                     `json:"saving"`
	Current   *domain.SystemParameters `json:"current,omitempty"`
	Draft     *domain.SystemParameters `json:"draft,omitempty"`
	LastError string                   `json:"last_error,omitempty"`
}

// ParamsPanel edits the system parameters. Every operation requires the
// admin role.
type ParamsPanel struct {
	mu      sync.Mutex
	role    Role
	backend ParamBackend

	visible bool
	editing bool
	saving  bool
	current domain.SystemParameters
	draft   domain.SystemParameters
	lastErr string
	token   uint64
}

// NewParamsPanel creates a hidden panel for role.
func NewParamsPanel(role Role, backend ParamBackend) *ParamsPanel {
	return &ParamsPanel{
		role:    role,
		backend: backend,
		current: domain.DefaultSystemParameters(),
	}
}

// Available reports whether the role may use the panel.
func (p *ParamsPanel) Available() bool { return p.role == RoleAdmin }

func (p *ParamsPanel) guard() error {
	if p.role != RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

// Load refreshes the current parameters from the backend.
func (p *ParamsPanel) Load(ctx context.Context) error {
	if !p.Available() {
		return nil
	}
	params, err := p.backend.Get(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.current = params
	p.mu.Unlock()
	return nil
}

// SetCurrent replaces the current parameters with a value saved elsewhere.
// An open draft is left alone.
func (p *ParamsPanel) SetCurrent(params domain.SystemParameters) {
	p.mu.Lock()
	p.current = params
	p.mu.Unlock()
}

// Toggle flips visibility.
func (p *ParamsPanel) Toggle() (bool, error) {
	if err := p.guard(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = !p.visible
	return p.visible, nil
}

// BeginEdit copies the current parameters into the draft.
func (p *ParamsPanel) BeginEdit() error {
	if err := p.guard(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = true
	p.editing = true
	p.draft = p.current
	p.lastErr = ""
	return nil
}

// Set replaces the draft.
func (p *ParamsPanel) Set(params domain.SystemParameters) error {
	if err := p.guard(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.editing {
		return domain.ErrNotEditing
	}
	p.draft = params
	return nil
}

// Reset loads the factory defaults into the draft.
func (p *ParamsPanel) Reset() error {
	if err := p.guard(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.editing {
		return domain.ErrNotEditing
	}
	p.draft = domain.DefaultSystemParameters()
	return nil
}

// CancelEdit discards the draft. A save still in flight is ignored when it
// completes.
func (p *ParamsPanel) CancelEdit() error {
	if err := p.guard(); err != nil {
		return err
	}
	p.mu.Lock()
	p.editing = false
	p.saving = false
	p.lastErr = ""
	p.token++
	p.mu.Unlock()
	return nil
}

// Save validates and persists the draft. Failures keep edit mode open.
func (p *ParamsPanel) Save(ctx context.Context) (domain.SystemParameters, error) {
	if err := p.guard(); err != nil {
		return domain.SystemParameters{}, err
	}
	p.mu.Lock()
	if !p.editing {
		p.mu.Unlock()
		return domain.SystemParameters{}, domain.ErrNotEditing
	}
	if p.saving {
		p.mu.Unlock()
		return domain.SystemParameters{}, domain.ErrBusy
	}
	draft := p.draft
	if err := draft.Validate(); err != nil {
		p.lastErr = err.Error()
		p.mu.Unlock()
		return domain.SystemParameters{}, err
	}
	p.saving = true
	p.lastErr = ""
	p.token++
	token := p.token
	p.mu.Unlock()

	saved, err := p.backend.Update(ctx, draft)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != token {
		return saved, domain.ErrStale
	}
	p.saving = false
	if err != nil {
		p.lastErr = err.Error()
		return domain.SystemParameters{}, err
	}
	p.current = saved
	p.editing = false
	return saved, nil
}

// State returns a copy of the panel state.
func (p *ParamsPanel) State() ParamsState {
	if !p.Available() {
		return ParamsState{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.current
	st := ParamsState{
		Available: true,
		Visible:   p.visible,
		Editing:   p.editing,
		Saving:    p.saving,
		Current:   &current,
		LastError: p.lastErr,
	}
	if p.editing {
		draft := p.draft
		st.Draft = &draft
	}
	return st
}
