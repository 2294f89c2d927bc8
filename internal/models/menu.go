package models

type MenuItem struct {
	ID            string     `json:"id"`
	Label         string     `json:"label"`
	Icon          string     `json:"icon,omitempty"`
	Route         string     `json:"route,omitempty"`
	Order         int        `json:"order"`
	IsActive      bool       `json:"isActive"`
	RequiredRoles []UserRole `json:"requiredRoles"`
	ParentID      *string    `json:"parentId"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (MenuItem) CollectionName() string {
	return "menuItems"
}

// Parent returns the parent id, or "" for a root item.
func (m *MenuItem) Parent() string {
	if m.ParentID == nil {
		return ""
	}
	return *m.ParentID
}

// IsPublic reports whether the item has no role restriction.
func (m *MenuItem) IsPublic() bool {
	return len(m.RequiredRoles) == 0
}

// AllowsRole reports whether role may see the item.
func (m *MenuItem) AllowsRole(role UserRole) bool {
	if m.IsPublic() {
		return true
	}
	for _, r := range m.RequiredRoles {
		if r == role {
			return true
		}
	}
	return false
}

// MenuNode is a menu item with its ordered children.
type MenuNode struct {
	MenuItem
	Children []*MenuNode `json:"children"`
}
