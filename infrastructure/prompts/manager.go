// Package prompts renders the system and user prompts for one analysis
// request from text/template sources selected by analysis depth.
package prompts

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// DefaultMaxDocumentChars bounds each document in runes.
const DefaultMaxDocumentChars = 12000

// criterionView is what templates see for each criterion.
type criterionView struct {
	Key    string
	Title  string
	Weight float64
}

type promptData struct {
	Reference string
	Proposal  string
	Depth     domain.Depth
	Criteria  []criterionView
}

// Manager builds prompts for analysis requests. It is safe for concurrent use.
type Manager struct {
	system   *template.Template
	user     map[domain.Depth]*template.Template
	maxChars int
	profile  domain.WeightProfile
}

var _ ports.PromptBuilder = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager) error

// WithMaxDocumentChars sets the per-document rune limit.
func WithMaxDocumentChars(n int) Option {
	return func(m *Manager) error {
		if n <= 0 {
			return fmt.Errorf("max document chars must be positive, got %d", n)
		}
		m.maxChars = n
		return nil
	}
}

// WithTemplate replaces the user template for depth.
func WithTemplate(depth domain.Depth, src string) Option {
	return func(m *Manager) error {
		if !depth.Valid() {
			return fmt.Errorf("unknown depth %q", depth)
		}
		t, err := parse(string(depth), src)
		if err != nil {
			return err
		}
		m.user[depth] = t
		return nil
	}
}

// WithSystemTemplate replaces the system prompt template.
func WithSystemTemplate(src string) Option {
	return func(m *Manager) error {
		t, err := parse("system", src)
		if err != nil {
			return err
		}
		m.system = t
		return nil
	}
}

// WithDefaultProfile sets the weights shown to the model when a request
// carries no profile of its own.
func WithDefaultProfile(p domain.WeightProfile) Option {
	return func(m *Manager) error {
		if err := p.Validate(); err != nil {
			return err
		}
		m.profile = p.Clone()
		return nil
	}
}

// New creates a Manager with the built-in templates.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		user:     make(map[domain.Depth]*template.Template, 3),
		maxChars: DefaultMaxDocumentChars,
		profile:  domain.DefaultPresets()[domain.PresetBalanced],
	}
	var err error
	if m.system, err = parse("system", defaultSystem); err != nil {
		return nil, err
	}
	for depth, src := range map[domain.Depth]string{
		domain.DepthBasic:    basicUser,
		domain.DepthDetailed: detailedUser,
		domain.DepthFull:     fullUser,
	} {
		if m.user[depth], err = parse(string(depth), src); err != nil {
			return nil, err
		}
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("configure prompts: %w", err)
		}
	}
	return m, nil
}

func parse(name, src string) (*template.Template, error) {
	t, err := template.New(name).Funcs(FuncMap()).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return t, nil
}

// Build renders the prompts for req.
func (m *Manager) Build(req *domain.AnalysisRequest) (ports.Prompt, error) {
	if req == nil {
		return ports.Prompt{}, fmt.Errorf("build prompt: nil request")
	}
	tmpl, ok := m.user[req.Depth()]
	if !ok {
		return ports.Prompt{}, fmt.Errorf("build prompt: no template for depth %q", req.Depth())
	}

	profile := m.profile
	if p, ok := req.Weights(); ok {
		profile = p
	}
	data := promptData{
		Reference: truncate(req.Reference(), m.maxChars),
		Proposal:  truncate(req.Proposal(), m.maxChars),
		Depth:     req.Depth(),
	}
	for _, c := range domain.AllCriteria() {
		data.Criteria = append(data.Criteria, criterionView{Key: string(c), Title: c.Title(), Weight: profile.Weight(c)})
	}

	var sys, user bytes.Buffer
	if err := m.system.Execute(&sys, data); err != nil {
		return ports.Prompt{}, fmt.Errorf("render system prompt: %w", err)
	}
	if err := tmpl.Execute(&user, data); err != nil {
		return ports.Prompt{}, fmt.Errorf("render %s prompt: %w", req.Depth(), err)
	}
	return ports.Prompt{System: sys.String(), User: user.String()}, nil
}
