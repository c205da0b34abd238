package types

// Category is a user-defined label that groups tasks. Tasks reference a
// category by ID only; a missing category is rendered with the fallback.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CategoryPatch lists the mutable category fields. Nil means not provided.
type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// Fallback presentation for tasks whose category no longer exists.
const (
	FallbackCategoryName  = "Uncategorized"
	FallbackCategoryColor = "#95a5a6"
)

// FallbackCategory returns the placeholder used to render an orphaned
// category reference. The ID is kept so the reference stays visible.
func FallbackCategory(id string) Category {
	return Category{ID: id, Name: FallbackCategoryName, Color: FallbackCategoryColor}
}

// Default category IDs. They are fixed so tasks created against the defaults
// keep resolving after a reload.
const (
	CategoryWork     = "work"
	CategoryPersonal = "personal"
	CategoryShopping = "shopping"
	CategoryOther    = "other"
)

// DefaultCategories returns a fresh copy of the built-in category set used
// whenever stored categories are absent, empty, or unreadable.
func DefaultCategories() []Category {
	return []Category{
		{ID: CategoryWork, Name: "Work", Color: "#e74c3c"},
		{ID: CategoryPersonal, Name: "Personal", Color: "#3498db"},
		{ID: CategoryShopping, Name: "Shopping", Color: "#f39c12"},
		{ID: CategoryOther, Name: "Other", Color: "#95a5a6"},
	}
}
