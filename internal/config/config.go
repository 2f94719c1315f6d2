package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-SvcRecords/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go SvcRecords"
	AppID             = "com.github.tartampluch.go-svcrecords"
	BinaryName        = "svcrecords"
	KeyringService    = "com.github.tartampluch.go-svcrecords"
	KeyringEndpoint   = "endpoint_url"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	ConfigFileName    = "config.yaml"
	CacheFileName     = "snapshots.db"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagConfig    = "config"
	FlagDebug     = "debug"
	FlagLang      = "lang"
	FlagPhone     = "phone"
	FlagOnlyWater = "only-water"
	FlagOffline   = "offline"
	FlagJSON      = "json"
	FlagDate      = "date"
	FlagName      = "name"
	FlagAddress   = "address"
	FlagPurposes  = "purposes"
	FlagItems     = "items"
	FlagOther     = "other"
	FlagCycle     = "cycle"
	FlagNotes     = "notes"
	FlagConfirm   = "confirm"
	FlagPort      = "port"

	FlagDescConfig    = "settings file path (default: <user config dir>/" + AppID + "/" + ConfigFileName + ")"
	FlagDescDebug     = "Enable debug logging to stdout"
	FlagDescLang      = "UI language (zh-TW, en)"
	FlagDescPhone     = "customer phone number (full number required)"
	FlagDescOnlyWater = "only list water-equipment records"
	FlagDescOffline   = "render from the local snapshot cache instead of the endpoint"
	FlagDescJSON      = "print rows as JSON instead of a table"
	FlagDescDate      = "service date (YYYY-MM-DD, default today)"
	FlagDescName      = "customer name"
	FlagDescAddress   = "customer address"
	FlagDescPurposes  = "comma separated purposes (安裝,購買)"
	FlagDescItems     = "comma separated items"
	FlagDescOther     = "text for the custom item"
	FlagDescCycle     = "water replacement cycle (半年, 一年, 一年半, 兩年)"
	FlagDescNotes     = "free-form notes"
	FlagDescConfirm   = "confirm the water unit was replaced"
	FlagDescPort      = "feed server port"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Environment Variables
// -----------------------------------------------------------------------------

const (
	EnvConfigPath = "SVCREC_CONFIG"
	EnvEndpoint   = "SVCREC_ENDPOINT"
	EnvLanguage   = "SVCREC_LANG"
	EnvDBPath     = "SVCREC_DB"
	EnvPort       = "SVCREC_PORT"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyColDate      = "col_date"
	TKeyColName      = "col_name"
	TKeyColPhone     = "col_phone"
	TKeyColAddress   = "col_address"
	TKeyColPurposes  = "col_purposes"
	TKeyColItems     = "col_items"
	TKeyColWater     = "col_water_status"
	TKeyColFollowup  = "col_followup"
	TKeyColNotes     = "col_notes"
	TKeyNotReplaced  = "status_not_replaced"
	TKeyReplaced     = "status_replaced"
	TKeyReplacePfx   = "followup_replace"
	TKeyWarrantyPfx  = "followup_warranty"
	TKeyWaterItem    = "item_water"
	TKeyTitleResults = "title_results"
	TKeyTitleLatest  = "title_latest"
	TKeyMsgNoData    = "msg_no_data"
	TKeyMsgSorted    = "msg_sorted"
	TKeyMsgOffline   = "msg_offline"
	TKeyMsgAdded     = "msg_added"
	TKeyMsgAddedRaw  = "msg_added_non_json"
	TKeyMsgReplaced  = "msg_water_replaced"
	TKeyMsgNotConf   = "msg_not_confirmed"
	TKeyEvtReplace   = "event_next_replace"
	TKeyEvtWarranty  = "event_warranty_end"
	TKeyRocLabel     = "roc_label"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb     = "web"
	SourceModeLocal   = "local"
	DefaultPort       = "18081"
	DefaultRefreshMin = 60
	DefaultLanguage   = "zh-TW"
	UIDNamespace      = "svcrecords.followup"

	// RocYearOffset converts Gregorian years to Republic-of-China era years.
	RocYearOffset = 1911

	// RecordType tags every submitted payload for the remote store.
	RecordType = "customer_service"

	// BodyPreviewLen bounds the response excerpt quoted in HTTP errors.
	BodyPreviewLen = 200
)

// -----------------------------------------------------------------------------
// Record Fields (remote store schema)
// -----------------------------------------------------------------------------

const (
	FieldServiceDateAD   = "service_date_ad"
	FieldServiceDateROC  = "service_date_roc"
	FieldCustomerName    = "customer_name"
	FieldPhone           = "phone"
	FieldAddress         = "address"
	FieldPurposes        = "purposes"
	FieldItems           = "items"
	FieldOtherItemText   = "other_item_text"
	FieldWaterCycle      = "water_replace_cycle"
	FieldNextReplaceROC  = "next_replace_date_roc"
	FieldWarrantyEndROC  = "warranty_end_date_roc"
	FieldNotes           = "notes"
	FieldCreatedAt       = "created_at"
	PayloadType          = "type"
	PayloadTimestamp     = "timestamp"
	PayloadData          = "data"
	ResponseOK           = "ok"
	ResponseRows         = "rows"
	ResponseError        = "error"
	QueryPhone           = "phone"
	QueryOnlyWater       = "only_water"
	QueryOnlyWaterEnable = "1"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go SvcRecords//Followups//EN"
	ICalCalName = "Service Follow-ups"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDescription = "DESCRIPTION"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	EventKindReplace  = "next_replace"
	EventKindWarranty = "warranty"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	DateFormatISO       = "2006-01-02"
	DateTimeFormatStore = "2006-01-02 15:04:05"
	FormatRoc           = "%03d.%02d.%02d"
	RocSeparator        = "."
	ListJoinSeparator   = " / "
	ReplaceNote         = "淨水設備更換"
	ReplaceNoteSep      = "｜"
	CSVSeparator        = ","

	MinPort = 1
	MaxPort = 65535
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 32 * 1024 * 1024 // 32MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty  = "configuration error: local path is empty"
	ErrEndpointEmpty   = "configuration error: endpoint URL is empty"
	ErrSourceMissing   = "internal error: record source is not initialized"
	ErrModeUnsupport   = "configuration error: unsupported source mode"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrPortNumber      = "server port must be a number"
	ErrPortRange       = "server port must be between 1 and 65535"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrConnection      = "connection failed"
	ErrHTTPStatus      = "unexpected HTTP status"
	ErrNotJSON         = "response is not JSON (check permissions or URL)"
	ErrBadResponse     = "malformed response body"
	ErrRejected        = "request rejected by endpoint"
	ErrUnknownRemote   = "unknown error"
	ErrEncodePayload   = "failed to encode request payload"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrVCardEncode     = "failed to encode vCard data"
	ErrLocalRead       = "failed to read local record file"
	ErrLocalDecode     = "failed to decode local record file"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrConfigDir       = "could not determine user config dir"
	ErrCreateDir       = "could not create app directory"
	ErrConfigRead      = "read settings file"
	ErrConfigParse     = "parse settings file"
	ErrConfigInvalid   = "invalid settings"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrStoreOpen       = "failed to open snapshot store"
	ErrStoreMigrate    = "failed to migrate snapshot store"
	ErrStoreSave       = "failed to save snapshot"
	ErrStoreLoad       = "failed to load snapshot"
	ErrNoSnapshot      = "no cached snapshot for this phone"
	ErrWatchStart      = "failed to start file watcher"
	ErrKeyringSet      = "failed to store endpoint in keyring"
	ErrValidation      = "invalid input"
	ErrDateShape       = "date format error, use YYYY-MM-DD"
	ErrDateInvalid     = "date could not be parsed, check that YYYY-MM-DD is a real date"
	ErrNamePhoneReq    = "name and phone are required"
	ErrOtherTextReq    = "custom item selected but no text given"
	ErrCycleReq        = "choose a replacement cycle (半年/一年/一年半/兩年)"
	ErrPhoneReq        = "full phone number is required"
	ErrNoRowsForPhone  = "no records for this phone, cannot create a replacement record"
	ErrNotConfirmed    = "replacement not confirmed"
	ErrFetchRaw        = "failed to read raw records"
	ErrPostReplacement = "failed to add replacement record"
	ErrUnknownItem     = "unknown item"
	ErrUnknownPurpose  = "unknown purpose"
	ErrUnknownCycle    = "unknown cycle"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackName = "Unknown"

	MsgSyncStarted   = "Synchronization started"
	MsgSyncFailed    = "Synchronization failed"
	MsgSyncReq       = "Sync requested"
	MsgWorkerStart   = "Background worker started"
	MsgWorkerStop    = "Worker stopping due to context cancellation"
	MsgAppStop       = "Application stopped gracefully"
	MsgSkippedRow    = "Skipping non-object row"
	MsgFeedSuccess   = "Follow-up feed generation successful"
	MsgAppStarting   = "Starting application"
	MsgServerListen  = "HTTP server listening"
	MsgServerStop    = "Shutting down HTTP server..."
	MsgCacheUpdated  = "Calendar cache updated"
	MsgLocaleSkip    = "Skipping non-locale file"
	MsgLocaleBadName = "Skipping malformed locale filename"
	MsgLocaleLoaded  = "Locale loaded successfully"
	MsgTransMissing  = "Missing translation key"
	MsgKeyringMiss   = "Endpoint not found in keyring"
	MsgLogWarning    = "Warning: %s at %s: %v\n"
	MsgRanked        = "Records ranked"
	MsgSnapshotSaved = "Snapshot cached"
	MsgFileChanged   = "Local record file changed"
	MsgWatchError    = "File watcher error"
	MsgPosted        = "Record posted"
	MsgNonJSONPost   = "Endpoint accepted record with non-JSON response"
	MsgEndpointSaved = "Endpoint URL stored in the OS keyring"
	MsgServeTracking = "Tracking customers for the follow-up feed"
	MsgServeStopped  = "Follow-up feed stopped"
	MsgStoreSkipped  = "Snapshot cache unavailable, continuing without it"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyInterval  = "interval"
	LogKeyPhone     = "phone"
	LogKeyTotal     = "total_rows"
	LogKeySkipped   = "skipped_rows"
	LogKeyEvents    = "events"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyDuration  = "duration_ms"
	LogKeyOp        = "op"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompCLI     = "cli"
	CompEngine  = "engine"
	CompRecords = "records"
	CompServer  = "server"
	CompClient  = "client"
	CompWorker  = "worker"
	CompMain    = "main"
	CompI18n    = "i18n"
	CompStore   = "store"
	CompWatch   = "watch"
	CompConfig  = "config"
)
