package domain

import "strings"

// Lead is a prospective customer contact tracked by the CRM.
type Lead struct {
	Audit
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Phone     *string    `json:"phone,omitempty"`
	Company   *string    `json:"company,omitempty"`
	JobTitle  *string    `json:"jobTitle,omitempty"`
	Source    LeadSource `json:"source"`
	Status    LeadStatus `json:"status"`
	Notes     *string    `json:"notes,omitempty"`
}

// FullName is the display name used on task cards.
func (l *Lead) FullName() string {
	if l == nil {
		return ""
	}
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// LeadPatch holds the fields of a partial update; nil means "keep".
type LeadPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Company   *string
	JobTitle  *string
	Source    *LeadSource
	Status    *LeadStatus
	Notes     *string
}

// Apply overwrites the supplied fields and reports whether anything was set.
func (p LeadPatch) Apply(l *Lead) bool {
	changed := false
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
			changed = true
		}
	}
	setOptional := func(dst **string, src *string) {
		if src != nil {
			v := *src
			*dst = &v
			changed = true
		}
	}
	setString(&l.FirstName, p.FirstName)
	setString(&l.LastName, p.LastName)
	setString(&l.Email, p.Email)
	setOptional(&l.Phone, p.Phone)
	setOptional(&l.Company, p.Company)
	setOptional(&l.JobTitle, p.JobTitle)
	setOptional(&l.Notes, p.Notes)
	if p.Source != nil {
		l.Source = *p.Source
		changed = true
	}
	if p.Status != nil {
		l.Status = *p.Status
		changed = true
	}
	return changed
}
