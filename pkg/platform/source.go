// Package platform defines the static catalog of Weft source connectors
// and auth provider integrations. The catalog is built at compile time and
// never mutated, so it is safe for concurrent readers without locking.
package platform

// Source is the short name of a data source connector.
type Source string

// Known source connectors. Declaration order is the canonical ordering
// used everywhere sources are listed.
const (
	SourceAsana           Source = "asana"
	SourceBitbucket       Source = "bitbucket"
	SourceConfluence      Source = "confluence"
	SourceDropbox         Source = "dropbox"
	SourceGitHub          Source = "github"
	SourceGmail           Source = "gmail"
	SourceGoogleCalendar  Source = "google_calendar"
	SourceGoogleDrive     Source = "google_drive"
	SourceHubSpot         Source = "hubspot"
	SourceJira            Source = "jira"
	SourceLinear          Source = "linear"
	SourceMonday          Source = "monday"
	SourceNotion          Source = "notion"
	SourceOneDrive        Source = "onedrive"
	SourceOutlookCalendar Source = "outlook_calendar"
	SourceOutlookMail     Source = "outlook_mail"
	SourcePostgreSQL      Source = "postgresql"
	SourceSlack           Source = "slack"
	SourceTodoist         Source = "todoist"
	SourceZendesk         Source = "zendesk"
)

// AllSources lists every known source in declaration order.
var AllSources = []Source{
	SourceAsana,
	SourceBitbucket,
	SourceConfluence,
	SourceDropbox,
	SourceGitHub,
	SourceGmail,
	SourceGoogleCalendar,
	SourceGoogleDrive,
	SourceHubSpot,
	SourceJira,
	SourceLinear,
	SourceMonday,
	SourceNotion,
	SourceOneDrive,
	SourceOutlookCalendar,
	SourceOutlookMail,
	SourcePostgreSQL,
	SourceSlack,
	SourceTodoist,
	SourceZendesk,
}

// Category groups sources by the kind of external system they connect to.
type Category string

const (
	CategoryProjectManagement Category = "project_management"
	CategoryCodeHosting       Category = "code_hosting"
	CategoryKnowledgeBase     Category = "knowledge_base"
	CategoryFileStorage       Category = "file_storage"
	CategoryEmail             Category = "email"
	CategoryCalendar          Category = "calendar"
	CategoryCRM               Category = "crm"
	CategoryDatabase          Category = "database"
	CategoryCommunication     Category = "communication"
	CategorySupport           Category = "support"
)

// SourceInfo describes a source connector.
type SourceInfo struct {
	ShortName Source   `json:"short_name"`
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	// AuthFields are the credential fields the connector requires
	AuthFields []string `json:"auth_fields"`
}

var catalog = map[Source]SourceInfo{
	SourceAsana:           {SourceAsana, "Asana", CategoryProjectManagement, []string{"access_token"}},
	SourceBitbucket:       {SourceBitbucket, "Bitbucket", CategoryCodeHosting, []string{"username", "app_password"}},
	SourceConfluence:      {SourceConfluence, "Confluence", CategoryKnowledgeBase, []string{"access_token"}},
	SourceDropbox:         {SourceDropbox, "Dropbox", CategoryFileStorage, []string{"access_token", "refresh_token"}},
	SourceGitHub:          {SourceGitHub, "GitHub", CategoryCodeHosting, []string{"personal_access_token"}},
	SourceGmail:           {SourceGmail, "Gmail", CategoryEmail, []string{"access_token", "refresh_token"}},
	SourceGoogleCalendar:  {SourceGoogleCalendar, "Google Calendar", CategoryCalendar, []string{"access_token", "refresh_token"}},
	SourceGoogleDrive:     {SourceGoogleDrive, "Google Drive", CategoryFileStorage, []string{"access_token", "refresh_token"}},
	SourceHubSpot:         {SourceHubSpot, "HubSpot", CategoryCRM, []string{"access_token"}},
	SourceJira:            {SourceJira, "Jira", CategoryProjectManagement, []string{"access_token"}},
	SourceLinear:          {SourceLinear, "Linear", CategoryProjectManagement, []string{"api_key"}},
	SourceMonday:          {SourceMonday, "Monday", CategoryProjectManagement, []string{"access_token"}},
	SourceNotion:          {SourceNotion, "Notion", CategoryKnowledgeBase, []string{"access_token"}},
	SourceOneDrive:        {SourceOneDrive, "OneDrive", CategoryFileStorage, []string{"access_token", "refresh_token"}},
	SourceOutlookCalendar: {SourceOutlookCalendar, "Outlook Calendar", CategoryCalendar, []string{"access_token", "refresh_token"}},
	SourceOutlookMail:     {SourceOutlookMail, "Outlook Mail", CategoryEmail, []string{"access_token", "refresh_token"}},
	SourcePostgreSQL:      {SourcePostgreSQL, "PostgreSQL", CategoryDatabase, []string{"host", "port", "database", "user", "password"}},
	SourceSlack:           {SourceSlack, "Slack", CategoryCommunication, []string{"access_token"}},
	SourceTodoist:         {SourceTodoist, "Todoist", CategoryProjectManagement, []string{"api_token"}},
	SourceZendesk:         {SourceZendesk, "Zendesk", CategorySupport, []string{"subdomain", "email", "api_token"}},
}

// Lookup returns the catalog entry for a source short name.
func Lookup(shortName string) (SourceInfo, bool) {
	info, ok := catalog[Source(shortName)]
	return info, ok
}

// KnownSource reports whether the short name identifies a cataloged source.
func KnownSource(shortName string) bool {
	_, ok := catalog[Source(shortName)]
	return ok
}

// SourcesByCategory returns the sources in a category, in declaration order.
func SourcesByCategory(category Category) []Source {
	var sources []Source
	for _, s := range AllSources {
		if catalog[s].Category == category {
			sources = append(sources, s)
		}
	}
	return sources
}
