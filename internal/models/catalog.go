package models

// Menu, catalog and inbox documents are provisioned outside this API and
// returned as stored.
const (
	MenuCollection    = "menu"
	SubMenuCollection = "menus"
	ItemsCollection   = "items"
	InboxCollection   = "inbox"

	FieldMenuOrder    = "mid"
	FieldSubMenuOrder = "smid"
	FieldInboxOwner   = "userId"
)
