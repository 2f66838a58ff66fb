package kobo

// Field names and nesting below mirror the Kobo store API exactly. Values the
// catalog does not track are filled with fixed defaults by the serializer.

// SyncEvent is one element of the library sync array. Exactly one of the
// entitlement fields is set.
type SyncEvent struct {
	ChangeType         string       `json:"ChangeType"`
	NewEntitlement     *Entitlement `json:"NewEntitlement,omitempty"`
	ChangedEntitlement *Entitlement `json:"ChangedEntitlement,omitempty"`
}

// Entitlement groups everything the device stores for one book.
type Entitlement struct {
	BookEntitlement BookEntitlement `json:"BookEntitlement"`
	BookMetadata    *BookMetadata   `json:"BookMetadata,omitempty"`
	ReadingState    *ReadingState   `json:"ReadingState,omitempty"`
}

// BookEntitlement is the ownership record of a book.
type BookEntitlement struct {
	Accessibility       string       `json:"Accessibility"`
	ActivePeriod        ActivePeriod `json:"ActivePeriod"`
	Created             string       `json:"Created"`
	CrossRevisionID     string       `json:"CrossRevisionId"`
	ID                  string       `json:"Id"`
	IsRemoved           bool         `json:"IsRemoved"`
	IsHiddenFromArchive bool         `json:"IsHiddenFromArchive"`
	IsLocked            bool         `json:"IsLocked"`
	LastModified        string       `json:"LastModified"`
	OriginCategory      string       `json:"OriginCategory"`
	RevisionID          string       `json:"RevisionId"`
	Status              string       `json:"Status"`
}

// ActivePeriod bounds when the entitlement is usable.
type ActivePeriod struct {
	From string `json:"From"`
}

// BookMetadata is the catalog record of a book.
type BookMetadata struct {
	Categories              []string          `json:"Categories"`
	ContributorRoles        []ContributorRole `json:"ContributorRoles"`
	Contributors            []string          `json:"Contributors"`
	CoverImageID            string            `json:"CoverImageId"`
	CrossRevisionID         string            `json:"CrossRevisionId"`
	CurrentDisplayPrice     DisplayPrice      `json:"CurrentDisplayPrice"`
	CurrentLoveDisplayPrice LovePrice         `json:"CurrentLoveDisplayPrice"`
	Description             string            `json:"Description"`
	DownloadUrls            []DownloadURL     `json:"DownloadUrls"`
	EntitlementID           string            `json:"EntitlementId"`
	ExternalIDs             []string          `json:"ExternalIds"`
	Genre                   string            `json:"Genre"`
	IsEligibleForKoboLove   bool              `json:"IsEligibleForKoboLove"`
	IsInternetArchive       bool              `json:"IsInternetArchive"`
	IsPreOrder              bool              `json:"IsPreOrder"`
	IsSocialEnabled         bool              `json:"IsSocialEnabled"`
	Language                string            `json:"Language"`
	PhoneticPronunciations  map[string]string `json:"PhoneticPronunciations"`
	PublicationDate         string            `json:"PublicationDate"`
	Publisher               Publisher         `json:"Publisher"`
	RevisionID              string            `json:"RevisionId"`
	Series                  *Series           `json:"Series,omitempty"`
	Title                   string            `json:"Title"`
	WorkID                  string            `json:"WorkId"`
}

// ContributorRole names a contributor and their role.
type ContributorRole struct {
	Name string `json:"Name"`
	Role string `json:"Role"`
}

// DisplayPrice is a price in a currency.
type DisplayPrice struct {
	CurrencyCode string  `json:"CurrencyCode"`
	TotalAmount  float64 `json:"TotalAmount"`
}

// LovePrice is a price in Kobo reward points.
type LovePrice struct {
	TotalAmount float64 `json:"TotalAmount"`
}

// DownloadURL is where the device fetches one format of the book.
type DownloadURL struct {
	DRMType  string `json:"DRMType"`
	Format   string `json:"Format"`
	Platform string `json:"Platform"`
	Size     int64  `json:"Size"`
	URL      string `json:"Url"`
}

// Publisher is the book's publisher.
type Publisher struct {
	Imprint string `json:"Imprint"`
	Name    string `json:"Name"`
}

// Series groups books on the device.
type Series struct {
	ID          string  `json:"Id"`
	Name        string  `json:"Name"`
	Number      string  `json:"Number"`
	NumberFloat float64 `json:"NumberFloat"`
}

// ReadingState is the device's progress record for a book.
type ReadingState struct {
	Created           string           `json:"Created"`
	CurrentBookmark   Bookmark         `json:"CurrentBookmark"`
	EntitlementID     string           `json:"EntitlementId"`
	LastModified      string           `json:"LastModified"`
	PriorityTimestamp string           `json:"PriorityTimestamp"`
	Statistics        ReadingStats     `json:"Statistics"`
	StatusInfo        ReadingStatusRef `json:"StatusInfo"`
}

// Bookmark is the last reading position.
type Bookmark struct {
	LastModified string `json:"LastModified"`
}

// ReadingStats holds reading statistics.
type ReadingStats struct {
	LastModified string `json:"LastModified"`
}

// ReadingStatusRef is the reading status of a book.
type ReadingStatusRef struct {
	LastModified        string `json:"LastModified"`
	Status              string `json:"Status"`
	TimesStartedReading int    `json:"TimesStartedReading"`
}

// DeviceAuthRequest is the body the device posts to auth/device.
type DeviceAuthRequest struct {
	AffiliateName string `json:"AffiliateName"`
	AppVersion    string `json:"AppVersion"`
	ClientKey     string `json:"ClientKey"`
	DeviceID      string `json:"DeviceId" validate:"required,deviceid,max=256"`
	PlatformID    string `json:"PlatformId"`
	SerialNumber  string `json:"SerialNumber"`
	UserKey       string `json:"UserKey"`
}

// RefreshRequest is the body the device posts to auth/refresh.
type RefreshRequest struct {
	AppVersion   string `json:"AppVersion"`
	ClientKey    string `json:"ClientKey"`
	PlatformID   string `json:"PlatformId"`
	RefreshToken string `json:"RefreshToken"`
}

// DeviceAuthResponse answers auth/device and auth/refresh.
type DeviceAuthResponse struct {
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
	TokenType    string `json:"TokenType"`
	TrackingID   string `json:"TrackingId"`
	UserKey      string `json:"UserKey"`
}

// InitializationResponse wraps the resource map for v1/initialization.
type InitializationResponse struct {
	Resources map[string]any `json:"Resources"`
}

// StateUpdateResponse acknowledges a reading state PUT.
type StateUpdateResponse struct {
	RequestResult string              `json:"RequestResult"`
	UpdateResults []StateUpdateResult `json:"UpdateResults"`
}

// StateUpdateResult reports the outcome for one entitlement.
type StateUpdateResult struct {
	EntitlementID         string       `json:"EntitlementId"`
	CurrentBookmarkResult UpdateResult `json:"CurrentBookmarkResult"`
	StatisticsResult      UpdateResult `json:"StatisticsResult"`
	StatusInfoResult      UpdateResult `json:"StatusInfoResult"`
}

// UpdateResult is a single Success/Failure flag.
type UpdateResult struct {
	Result string `json:"Result"`
}

// ErrorResponse is the body of every error answered to the device.
type ErrorResponse struct {
	ResultCode string `json:"ResultCode"`
	Message    string `json:"Message"`
}
