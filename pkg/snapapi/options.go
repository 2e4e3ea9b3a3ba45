package snapapi

// Format is the output format of a screenshot.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	FormatPDF  Format = "pdf"
)

// VideoFormat is the output format of a video capture.
type VideoFormat string

const (
	VideoMP4  VideoFormat = "mp4"
	VideoWebM VideoFormat = "webm"
	VideoGIF  VideoFormat = "gif"
)

// ResponseType selects how the service returns a capture.
type ResponseType string

const (
	ResponseBinary ResponseType = "binary"
	ResponseBase64 ResponseType = "base64"
	ResponseJSON   ResponseType = "json"
)

// WaitUntil is the page lifecycle event the renderer waits for.
type WaitUntil string

const (
	WaitLoad             WaitUntil = "load"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitNetworkIdle      WaitUntil = "networkidle"
)

// ExtractType selects what /v1/extract returns.
type ExtractType string

const (
	ExtractTypeMarkdown   ExtractType = "markdown"
	ExtractTypeText       ExtractType = "text"
	ExtractTypeHTML       ExtractType = "html"
	ExtractTypeArticle    ExtractType = "article"
	ExtractTypeStructured ExtractType = "structured"
	ExtractTypeLinks      ExtractType = "links"
	ExtractTypeImages     ExtractType = "images"
	ExtractTypeMetadata   ExtractType = "metadata"
)

// Defaults applied when the corresponding option is left zero.
const (
	DefaultWidth         = 1280
	DefaultHeight        = 800
	DefaultVideoWidth    = 1280
	DefaultVideoHeight   = 720
	DefaultVideoDuration = 5000
	DefaultVideoFPS      = 24

	defaultCaptureTimeoutMs = 30000
	defaultVideoTimeoutMs   = 60000
	maxBatchURLs            = 100
)

// DevicePresets lists the device ids the service accepts in the device field.
var DevicePresets = []string{
	"desktop-1080p", "desktop-1440p", "desktop-4k",
	"macbook-pro-13", "macbook-pro-16", "imac-24",
	"iphone-se", "iphone-12", "iphone-13", "iphone-14", "iphone-14-pro",
	"iphone-15", "iphone-15-pro", "iphone-15-pro-max",
	"ipad", "ipad-mini", "ipad-air", "ipad-pro-11", "ipad-pro-12.9",
	"pixel-7", "pixel-8", "pixel-8-pro",
	"samsung-galaxy-s23", "samsung-galaxy-s24", "samsung-galaxy-tab-s9",
}

// Cookie is set in the browser context before the page loads.
type Cookie struct {
	Name     string `json:"name" validate:"required"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Expires  int64  `json:"expires,omitempty"`
	HTTPOnly *bool  `json:"httpOnly,omitempty"`
	Secure   *bool  `json:"secure,omitempty"`
	SameSite string `json:"sameSite,omitempty" validate:"omitempty,oneof=Strict Lax None"`
}

// HTTPAuth holds basic auth credentials for the target page.
type HTTPAuth struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
}

// Proxy routes the renderer's traffic.
type Proxy struct {
	Server   string   `json:"server" validate:"required"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	Bypass   []string `json:"bypass,omitempty"`
}

// Geolocation is emulated for the page.
type Geolocation struct {
	Latitude  float64  `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64  `json:"longitude" validate:"min=-180,max=180"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,min=0"`
}

// PDFOptions tunes PDF rendering when Format is pdf.
type PDFOptions struct {
	PageSize            string   `json:"pageSize,omitempty" validate:"omitempty,oneof=a4 a3 a5 letter legal tabloid custom"`
	Width               string   `json:"width,omitempty"`
	Height              string   `json:"height,omitempty"`
	Landscape           *bool    `json:"landscape,omitempty"`
	MarginTop           string   `json:"marginTop,omitempty"`
	MarginRight         string   `json:"marginRight,omitempty"`
	MarginBottom        string   `json:"marginBottom,omitempty"`
	MarginLeft          string   `json:"marginLeft,omitempty"`
	PrintBackground     *bool    `json:"printBackground,omitempty"`
	HeaderTemplate      string   `json:"headerTemplate,omitempty"`
	FooterTemplate      string   `json:"footerTemplate,omitempty"`
	DisplayHeaderFooter *bool    `json:"displayHeaderFooter,omitempty"`
	Scale               *float64 `json:"scale,omitempty" validate:"omitempty,min=0.1,max=2"`
	PageRanges          string   `json:"pageRanges,omitempty"`
	PreferCSSPageSize   *bool    `json:"preferCSSPageSize,omitempty"`
}

// ThumbnailOptions asks the service to return a thumbnail alongside the capture.
type ThumbnailOptions struct {
	Enabled bool   `json:"enabled"`
	Width   int    `json:"width,omitempty" validate:"omitempty,min=1"`
	Height  int    `json:"height,omitempty" validate:"omitempty,min=1"`
	Fit     string `json:"fit,omitempty" validate:"omitempty,oneof=cover contain fill"`
}

// MetadataSelection selects extra page metadata returned with a JSON capture.
type MetadataSelection struct {
	Fonts          *bool `json:"fonts,omitempty"`
	Colors         *bool `json:"colors,omitempty"`
	Links          *bool `json:"links,omitempty"`
	HTTPStatusCode *bool `json:"httpStatusCode,omitempty"`
}

// ScreenshotOptions configures POST /v1/screenshot. Exactly one of URL, HTML
// or Markdown must be set. Zero values mean "service default".
type ScreenshotOptions struct {
	URL      string `json:"url,omitempty"`
	HTML     string `json:"html,omitempty"`
	Markdown string `json:"markdown,omitempty"`

	Format  Format `json:"format" validate:"oneof=png jpeg webp avif pdf"`
	Quality int    `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
	Device  string `json:"device,omitempty"`

	Width             int     `json:"width" validate:"min=100,max=3840"`
	Height            int     `json:"height" validate:"min=100,max=2160"`
	DeviceScaleFactor float64 `json:"deviceScaleFactor,omitempty" validate:"omitempty,min=0.5,max=3"`
	IsMobile          bool    `json:"isMobile,omitempty"`
	HasTouch          bool    `json:"hasTouch,omitempty"`
	IsLandscape       bool    `json:"isLandscape,omitempty"`

	FullPage            bool `json:"fullPage,omitempty"`
	FullPageScrollDelay *int `json:"fullPageScrollDelay,omitempty" validate:"omitempty,min=0"`
	FullPageMaxHeight   *int `json:"fullPageMaxHeight,omitempty" validate:"omitempty,min=1"`

	Selector               string `json:"selector,omitempty"`
	SelectorScrollIntoView *bool  `json:"selectorScrollIntoView,omitempty"`
	ClipX                  *int   `json:"clipX,omitempty" validate:"omitempty,min=0"`
	ClipY                  *int   `json:"clipY,omitempty" validate:"omitempty,min=0"`
	ClipWidth              *int   `json:"clipWidth,omitempty" validate:"omitempty,min=1"`
	ClipHeight             *int   `json:"clipHeight,omitempty" validate:"omitempty,min=1"`

	Delay                  int       `json:"delay,omitempty" validate:"min=0,max=10000"`
	Timeout                int       `json:"timeout,omitempty" validate:"omitempty,min=1000,max=60000"`
	WaitUntil              WaitUntil `json:"waitUntil,omitempty" validate:"omitempty,oneof=load domcontentloaded networkidle"`
	WaitForSelector        string    `json:"waitForSelector,omitempty"`
	WaitForSelectorTimeout *int      `json:"waitForSelectorTimeout,omitempty" validate:"omitempty,min=0"`

	DarkMode      bool     `json:"darkMode,omitempty"`
	ReducedMotion bool     `json:"reducedMotion,omitempty"`
	CSS           string   `json:"css,omitempty"`
	JavaScript    string   `json:"javascript,omitempty"`
	HideSelectors []string `json:"hideSelectors,omitempty"`
	ClickSelector string   `json:"clickSelector,omitempty"`
	ClickDelay    *int     `json:"clickDelay,omitempty" validate:"omitempty,min=0"`

	BlockAds           bool     `json:"blockAds,omitempty"`
	BlockTrackers      bool     `json:"blockTrackers,omitempty"`
	BlockCookieBanners bool     `json:"blockCookieBanners,omitempty"`
	BlockChatWidgets   bool     `json:"blockChatWidgets,omitempty"`
	BlockResources     []string `json:"blockResources,omitempty"`

	UserAgent    string            `json:"userAgent,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
	Cookies      []Cookie          `json:"cookies,omitempty" validate:"dive"`
	HTTPAuth     *HTTPAuth         `json:"httpAuth,omitempty"`
	Proxy        *Proxy            `json:"proxy,omitempty"`
	Geolocation  *Geolocation      `json:"geolocation,omitempty"`
	Timezone     string            `json:"timezone,omitempty"`
	Locale       string            `json:"locale,omitempty"`

	PDFOptions *PDFOptions       `json:"pdfOptions,omitempty"`
	Thumbnail  *ThumbnailOptions `json:"thumbnail,omitempty"`

	FailOnHTTPError bool `json:"failOnHttpError,omitempty"`
	Cache           bool `json:"cache,omitempty"`
	CacheTTL        *int `json:"cacheTtl,omitempty" validate:"omitempty,min=0"`

	ResponseType          ResponseType       `json:"responseType,omitempty" validate:"omitempty,oneof=binary base64 json"`
	IncludeMetadata       bool               `json:"includeMetadata,omitempty"`
	ExtractMetadata       *MetadataSelection `json:"extractMetadata,omitempty"`
	FailIfContentMissing  []string           `json:"failIfContentMissing,omitempty"`
	FailIfContentContains []string           `json:"failIfContentContains,omitempty"`
}

// withDefaults returns a copy with service defaults filled in.
func (o ScreenshotOptions) withDefaults() ScreenshotOptions {
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.ResponseType == "" {
		o.ResponseType = ResponseBinary
	}
	return o
}

// wire returns the request body: values equal to the service defaults are
// dropped so the payload stays minimal.
func (o ScreenshotOptions) wire() ScreenshotOptions {
	if o.DeviceScaleFactor == 1 {
		o.DeviceScaleFactor = 0
	}
	if o.Timeout == defaultCaptureTimeoutMs {
		o.Timeout = 0
	}
	if o.ResponseType == ResponseBinary {
		o.ResponseType = ""
	}
	return o
}

// VideoOptions configures POST /v1/video.
type VideoOptions struct {
	URL      string      `json:"url" validate:"required"`
	Format   VideoFormat `json:"format" validate:"oneof=mp4 webm gif"`
	Quality  int         `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
	Width    int         `json:"width" validate:"min=100,max=3840"`
	Height   int         `json:"height" validate:"min=100,max=2160"`
	Device   string      `json:"device,omitempty"`
	Duration int         `json:"duration" validate:"min=1"`
	FPS      int         `json:"fps" validate:"min=1,max=60"`

	Delay           int       `json:"delay,omitempty" validate:"min=0,max=10000"`
	Timeout         int       `json:"timeout,omitempty" validate:"omitempty,min=1000"`
	WaitUntil       WaitUntil `json:"waitUntil,omitempty" validate:"omitempty,oneof=load domcontentloaded networkidle"`
	WaitForSelector string    `json:"waitForSelector,omitempty"`

	DarkMode           bool     `json:"darkMode,omitempty"`
	BlockAds           bool     `json:"blockAds,omitempty"`
	BlockCookieBanners bool     `json:"blockCookieBanners,omitempty"`
	CSS                string   `json:"css,omitempty"`
	JavaScript         string   `json:"javascript,omitempty"`
	HideSelectors      []string `json:"hideSelectors,omitempty"`
	UserAgent          string   `json:"userAgent,omitempty"`
	Cookies            []Cookie `json:"cookies,omitempty" validate:"dive"`

	ResponseType ResponseType `json:"responseType,omitempty" validate:"omitempty,oneof=binary base64 json"`

	Scroll         bool   `json:"scroll,omitempty"`
	ScrollDelay    *int   `json:"scrollDelay,omitempty" validate:"omitempty,min=0"`
	ScrollDuration *int   `json:"scrollDuration,omitempty" validate:"omitempty,min=0"`
	ScrollBy       *int   `json:"scrollBy,omitempty"`
	ScrollEasing   string `json:"scrollEasing,omitempty" validate:"omitempty,oneof=linear ease_in ease_out ease_in_out ease_in_out_quint"`
	ScrollBack     bool   `json:"scrollBack,omitempty"`
	ScrollComplete bool   `json:"scrollComplete,omitempty"`
}

func (o VideoOptions) withDefaults() VideoOptions {
	if o.Format == "" {
		o.Format = VideoMP4
	}
	if o.Width == 0 {
		o.Width = DefaultVideoWidth
	}
	if o.Height == 0 {
		o.Height = DefaultVideoHeight
	}
	if o.Duration == 0 {
		o.Duration = DefaultVideoDuration
	}
	if o.FPS == 0 {
		o.FPS = DefaultVideoFPS
	}
	if o.ResponseType == "" {
		o.ResponseType = ResponseBinary
	}
	return o
}

func (o VideoOptions) wire() VideoOptions {
	if o.Timeout == defaultVideoTimeoutMs {
		o.Timeout = 0
	}
	if o.ResponseType == ResponseBinary {
		o.ResponseType = ""
	}
	return o
}

// BatchOptions configures POST /v1/screenshot/batch. All URLs share the
// same capture options.
type BatchOptions struct {
	URLs               []string `json:"urls" validate:"required,min=1,max=100,dive,required"`
	Format             Format   `json:"format" validate:"oneof=png jpeg webp avif pdf"`
	Quality            int      `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
	Width              int      `json:"width" validate:"min=100,max=3840"`
	Height             int      `json:"height" validate:"min=100,max=2160"`
	FullPage           bool     `json:"fullPage,omitempty"`
	WebhookURL         string   `json:"webhookUrl,omitempty" validate:"omitempty,url"`
	DarkMode           bool     `json:"darkMode,omitempty"`
	BlockAds           bool     `json:"blockAds,omitempty"`
	BlockCookieBanners bool     `json:"blockCookieBanners,omitempty"`
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	return o
}

// ExtractOptions configures POST /v1/extract.
type ExtractOptions struct {
	URL                string      `json:"url" validate:"required"`
	Type               ExtractType `json:"type" validate:"oneof=markdown text html article structured links images metadata"`
	Selector           string      `json:"selector,omitempty"`
	WaitFor            string      `json:"waitFor,omitempty"`
	Timeout            int         `json:"timeout,omitempty" validate:"omitempty,min=1000"`
	DarkMode           bool        `json:"darkMode,omitempty"`
	BlockAds           bool        `json:"blockAds,omitempty"`
	BlockCookieBanners bool        `json:"blockCookieBanners,omitempty"`
	IncludeImages      *bool       `json:"includeImages,omitempty"`
	MaxLength          int         `json:"maxLength,omitempty" validate:"omitempty,min=1"`
	CleanOutput        *bool       `json:"cleanOutput,omitempty"`
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	if o.Type == "" {
		o.Type = ExtractTypeMarkdown
	}
	return o
}

// AnalyzeOptions configures POST /v1/analyze. The page is rendered by the
// service and passed to the chosen LLM provider with Prompt.
type AnalyzeOptions struct {
	URL                string         `json:"url" validate:"required"`
	Prompt             string         `json:"prompt" validate:"required"`
	Provider           string         `json:"provider,omitempty" validate:"omitempty,oneof=openai anthropic"`
	APIKey             string         `json:"apiKey,omitempty"`
	Model              string         `json:"model,omitempty"`
	JSONSchema         map[string]any `json:"jsonSchema,omitempty"`
	Timeout            int            `json:"timeout,omitempty" validate:"omitempty,min=1000"`
	WaitFor            string         `json:"waitFor,omitempty"`
	BlockAds           bool           `json:"blockAds,omitempty"`
	BlockCookieBanners bool           `json:"blockCookieBanners,omitempty"`
	IncludeScreenshot  *bool          `json:"includeScreenshot,omitempty"`
	IncludeMetadata    *bool          `json:"includeMetadata,omitempty"`
	MaxContentLength   int            `json:"maxContentLength,omitempty" validate:"omitempty,min=1"`
}

// Bool returns a pointer to v, for optional boolean fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for optional integer fields.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for optional float fields.
func Float(v float64) *float64 { return &v }
