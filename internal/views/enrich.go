package views

import "github.com/seoaudit/seoconsole/internal/models"

// Enrichment joins related entities for display. Inputs are never mutated:
// every returned entity is a shallow copy. Dangling foreign keys leave the
// joined field nil.

func EnrichClients(cs []*models.Client, ws []*models.Website) []*models.Client {
	byClient := make(map[int64][]*models.Website)
	for _, w := range ws {
		byClient[w.ClientID] = append(byClient[w.ClientID], w)
	}

	out := make([]*models.Client, len(cs))
	for i, c := range cs {
		cp := *c
		cp.Websites = byClient[c.ID]
		out[i] = &cp
	}
	return out
}

func EnrichWebsites(ws []*models.Website, cs []*models.Client) []*models.Website {
	byID := indexClients(cs)

	out := make([]*models.Website, len(ws))
	for i, w := range ws {
		cp := *w
		cp.Client = byID[w.ClientID]
		out[i] = &cp
	}
	return out
}

func EnrichScans(ss []*models.Scan, ws []*models.Website, cs []*models.Client) []*models.Scan {
	sites := indexWebsites(EnrichWebsites(ws, cs))

	out := make([]*models.Scan, len(ss))
	for i, s := range ss {
		cp := *s
		if w, ok := sites[s.WebsiteID]; ok {
			cp.Website = w
			cp.Client = w.Client
		}
		out[i] = &cp
	}
	return out
}

func EnrichSchedules(ss []*models.Schedule, ws []*models.Website, cs []*models.Client) []*models.Schedule {
	sites := indexWebsites(EnrichWebsites(ws, cs))

	out := make([]*models.Schedule, len(ss))
	for i, s := range ss {
		cp := *s
		cp.Website = sites[s.WebsiteID]
		out[i] = &cp
	}
	return out
}

// EnrichIssues attaches registry definitions by issue type.
func EnrichIssues(is []*models.Issue, defs []*models.IssueDefinition) []*models.Issue {
	byType := make(map[string]*models.IssueDefinition, len(defs))
	for _, d := range defs {
		byType[d.IssueType] = d
	}

	out := make([]*models.Issue, len(is))
	for i, issue := range is {
		cp := *issue
		cp.Definition = byType[issue.IssueType]
		if cp.Severity == "" && cp.Definition != nil {
			cp.Severity = cp.Definition.Severity
		}
		if cp.Category == "" && cp.Definition != nil {
			cp.Category = cp.Definition.Category
		}
		out[i] = &cp
	}
	return out
}

func indexClients(cs []*models.Client) map[int64]*models.Client {
	m := make(map[int64]*models.Client, len(cs))
	for _, c := range cs {
		m[c.ID] = c
	}
	return m
}

func indexWebsites(ws []*models.Website) map[int64]*models.Website {
	m := make(map[int64]*models.Website, len(ws))
	for _, w := range ws {
		m[w.ID] = w
	}
	return m
}
