package views

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/seoaudit/seoconsole/internal/forms"
	"github.com/seoaudit/seoconsole/internal/models"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/state"
	"github.com/seoaudit/seoconsole/internal/table"
)

// dataIssueDefinitions holds the registry merged with local edits.
const dataIssueDefinitions = "issueDefinitions"

func severityValues() []string {
	out := make([]string, len(models.Severities))
	for i, s := range models.Severities {
		out[i] = string(s)
	}
	return out
}

var issueDefinitionRules = forms.Rules{
	"issue_type": {
		Label:     "Il tipo",
		Required:  true,
		MaxLength: 100,
		Pattern:   regexp.MustCompile(`^[a-z0-9_]+$`),
		PatternIT: "Il tipo può contenere solo lettere minuscole, numeri e underscore",
	},
	"name_it":     {Label: "Il nome", Required: true, MaxLength: 255},
	"category":    {Label: "La categoria", Required: true, MaxLength: 100},
	"severity":    {Label: "La gravità", Required: true, OneOf: severityValues()},
	"format_type": {Label: "Il formato", MaxLength: 50},
	"icon":        {Label: "L'icona", MaxLength: 50},
}

var definitionSpec = table.Spec[*models.IssueDefinition]{
	SearchText: func(d *models.IssueDefinition) []string {
		return []string{d.IssueType, d.NameIT, d.DescriptionIT}
	},
	Field: func(d *models.IssueDefinition, name string) (string, bool) {
		switch name {
		case "category":
			return d.Category, true
		case "severity":
			return string(d.Severity), true
		}
		return "", false
	},
	Less: func(a, b *models.IssueDefinition, key string) bool {
		switch key {
		case "severity":
			return a.Severity.Rank() < b.Severity.Rank()
		case "name":
			return less(a.NameIT, b.NameIT)
		}
		return a.IssueType < b.IssueType
	},
	DefaultSort: "type",
}

// Issues manages issue definitions. The backend registry is read-only, so
// edits live in a local overlay merged over it for the life of the process.
type Issues struct {
	list

	mu      sync.Mutex
	overlay map[string]*models.IssueDefinition
	deleted map[string]bool
}

func NewIssues(deps Deps) *Issues {
	return &Issues{
		list:    list{name: "issues", filterKeys: []string{"search", "category", "severity"}, deps: deps.withDefaults()},
		overlay: make(map[string]*models.IssueDefinition),
		deleted: make(map[string]bool),
	}
}

func (m *Issues) Load(ctx context.Context) error {
	if err := m.deps.Loader.Load(ctx, ResIssueRegistry); err != nil {
		return m.loadFailed(err)
	}
	m.publish()
	return nil
}

// publish stores the registry merged with the overlay.
func (m *Issues) publish() {
	registry := state.Data[*models.IssueDefinition](m.deps.Store, string(ResIssueRegistry))

	m.mu.Lock()
	merged := make([]*models.IssueDefinition, 0, len(registry)+len(m.overlay))
	seen := make(map[string]bool, len(registry))
	for _, d := range registry {
		seen[d.IssueType] = true
		if m.deleted[d.IssueType] {
			continue
		}
		if o, ok := m.overlay[d.IssueType]; ok {
			merged = append(merged, o)
			continue
		}
		merged = append(merged, d)
	}
	for key, o := range m.overlay {
		if !seen[key] {
			merged = append(merged, o)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].IssueType < merged[j].IssueType })
	state.SetData(m.deps.Store, dataIssueDefinitions, merged)
}

// Definitions returns the merged definitions.
func (m *Issues) Definitions() []*models.IssueDefinition {
	return definitions(m.deps.Store)
}

func (m *Issues) find(issueType string) *models.IssueDefinition {
	for _, d := range m.Definitions() {
		if d.IssueType == issueType {
			return d
		}
	}
	return nil
}

// Categories lists distinct categories for the filter bar.
func (m *Issues) Categories() []string {
	set := make(map[string]bool)
	for _, d := range m.Definitions() {
		if d.Category != "" {
			set[d.Category] = true
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

type issuesView struct {
	TableView[*models.IssueDefinition]
	Categories []string
	Severities []models.Severity
}

func (m *Issues) view() issuesView {
	return issuesView{
		TableView:  apply(&m.list, m.Definitions(), definitionSpec),
		Categories: m.Categories(),
		Severities: models.Severities,
	}
}

func (m *Issues) Render(w io.Writer) error {
	return m.deps.Renderer.Render(w, "issues", m.view())
}

func (m *Issues) RenderTable(w io.Writer) error {
	return m.deps.Renderer.Render(w, "issues_table", m.view())
}

type issueModal struct {
	*Form
	Severities []models.Severity
}

func (m *Issues) RenderModal(w io.Writer, id string, form *Form) error {
	if form == nil {
		form = &Form{ID: id, Values: url.Values{}}
		form.Values.Set("severity", string(models.SeverityMedium))
		if id != "" {
			d := m.find(id)
			if d == nil {
				return fmt.Errorf("issue type %q: %w", id, ErrNotFound)
			}
			form.Values.Set("issue_type", d.IssueType)
			form.Values.Set("name_it", d.NameIT)
			form.Values.Set("description_it", d.DescriptionIT)
			form.Values.Set("category", d.Category)
			form.Values.Set("severity", string(d.Severity))
			form.Values.Set("format_type", d.FormatType)
			form.Values.Set("icon", d.Icon)
			form.Values.Set("recommendations", strings.Join(d.Recommendations, "\n"))
			if len(d.EscalationRules) > 0 {
				raw, _ := json.MarshalIndent(d.EscalationRules, "", "  ")
				form.Values.Set("escalation_rules", string(raw))
			}
		}
	}
	m.deps.Store.SetModal("issue", true)
	return m.deps.Renderer.Render(w, "issue_modal", issueModal{Form: form, Severities: models.Severities})
}

// ParseRecommendations takes one recommendation per line, dropping blanks.
func ParseRecommendations(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ParseEscalationRules accepts an empty value or a JSON object.
func ParseEscalationRules(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var rules map[string]any
	if err := json.Unmarshal([]byte(text), &rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRules, err)
	}
	return rules, nil
}

func (m *Issues) Save(ctx context.Context, id string, values url.Values) error {
	if errs := forms.Validate(values, issueDefinitionRules); errs != nil {
		return m.invalid(errs)
	}
	rules, err := ParseEscalationRules(values.Get("escalation_rules"))
	if err != nil {
		m.deps.Toasts.Error(notifications.MsgInvalidJSON)
		return err
	}

	d := &models.IssueDefinition{
		IssueType:       strings.TrimSpace(values.Get("issue_type")),
		NameIT:          strings.TrimSpace(values.Get("name_it")),
		DescriptionIT:   strings.TrimSpace(values.Get("description_it")),
		Category:        strings.TrimSpace(values.Get("category")),
		Severity:        models.Severity(values.Get("severity")),
		FormatType:      strings.TrimSpace(values.Get("format_type")),
		Icon:            strings.TrimSpace(values.Get("icon")),
		Recommendations: ParseRecommendations(values.Get("recommendations")),
		EscalationRules: rules,
	}

	if id != d.IssueType && m.find(d.IssueType) != nil {
		return m.invalid(forms.Errors{"issue_type": "Esiste già un problema con questo tipo"})
	}
	if id != "" && m.find(id) == nil {
		return fmt.Errorf("issue type %q: %w", id, ErrNotFound)
	}

	m.mu.Lock()
	if id != "" && id != d.IssueType {
		delete(m.overlay, id)
		m.deleted[id] = true
	}
	delete(m.deleted, d.IssueType)
	m.overlay[d.IssueType] = d
	m.mu.Unlock()

	m.deps.Store.SetModal("issue", false)
	m.publish()
	if id == "" {
		m.deps.Toasts.Success(notifications.Created("Tipo di problema"))
	} else {
		m.deps.Toasts.Success(notifications.Updated("Tipo di problema"))
	}
	return nil
}

func (m *Issues) Delete(ctx context.Context, id string) error {
	if m.find(id) == nil {
		return fmt.Errorf("issue type %q: %w", id, ErrNotFound)
	}

	m.mu.Lock()
	delete(m.overlay, id)
	m.deleted[id] = true
	m.mu.Unlock()

	m.publish()
	m.deps.Toasts.Success(notifications.Removed("Tipo di problema"))
	return nil
}
