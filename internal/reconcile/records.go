package reconcile

// Domain records consumed by the engine. These mirror the upstream metadata
// catalog's export shapes; the engine maps them onto graph entities.

// TableRecord describes one table and everything hanging off it.
type TableRecord struct {
	Database    string
	Cluster     string
	Schema      string
	Name        string
	IsView      bool
	Description string

	ProgrammaticDescriptions []ProgrammaticDescription
	Columns                  []ColumnRecord
	Tags                     []TagRecord

	// TableWriter identifies the application (or, historically, the user)
	// that produces this table; empty when unknown.
	TableWriter string
}

// ProgrammaticDescription is a non-user description attributed to a source
// system.
type ProgrammaticDescription struct {
	Source string
	Text   string
}

// ColumnRecord describes one column of a table.
type ColumnRecord struct {
	Name        string
	ColType     string
	SortOrder   int
	Description string
	Stats       []StatRecord
}

// StatRecord is one statistic attached to a column.
type StatRecord struct {
	StatType   string
	StatVal    string
	StartEpoch any
	EndEpoch   any
}

// TagRecord is a tag applied to a table.
type TagRecord struct {
	TagName string
	TagType string
}

// UserRecord describes one person or robot account.
type UserRecord struct {
	UserID          string
	Email           string
	FullName        string
	FirstName       string
	LastName        string
	DisplayName     string
	TeamName        string
	EmployeeType    string
	IsActive        bool
	ProfileURL      string
	RoleName        string
	SlackID         string
	GithubUsername  string
	ManagerFullname string
	ManagerEmail    string
	ManagerID       string
	IsRobot         bool
}

// ApplicationRecord describes one producing application.
type ApplicationRecord struct {
	ID             string
	Name           string
	Description    string
	ApplicationURL string
}
