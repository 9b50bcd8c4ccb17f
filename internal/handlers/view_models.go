package handlers

import "mathwizard/internal/models"

// userView is the "user" object returned after login and settings changes
type userView struct {
	Role        models.Role           `json:"role"`
	Email       string                `json:"email,omitempty"`
	Name        string                `json:"name"`
	Username    string                `json:"username,omitempty"`
	Year        string                `json:"year,omitempty"`
	YearGroup   *int                  `json:"yearGroup,omitempty"`
	Children    []string              `json:"children,omitempty"`
	MaxChildren *int                  `json:"maxChildren,omitempty"`
	Partners    []models.PartnerEntry `json:"partners,omitempty"`
}

func newUserView(p *models.Principal) userView {
	v := userView{
		Role:        p.Role,
		Email:       p.Email,
		Name:        p.Name,
		Username:    p.Username,
		Year:        p.Year,
		YearGroup:   p.YearGroup,
		Children:    p.Children,
		MaxChildren: p.MaxChildren,
	}
	if p.Role == models.RoleParent && v.Children == nil {
		v.Children = []string{}
	}
	return v
}

func newParentView(p *models.ParentAccount) userView {
	maxChildren := p.MaxChildren
	children := p.Children
	if children == nil {
		children = []string{}
	}
	return userView{
		Role:        models.RoleParent,
		Email:       p.Email,
		Name:        p.Name,
		Children:    children,
		MaxChildren: &maxChildren,
		Partners:    partnerViews(p.Partners),
	}
}

func partnerViews(partners []models.PartnerEntry) []models.PartnerEntry {
	if partners == nil {
		return []models.PartnerEntry{}
	}
	return partners
}
