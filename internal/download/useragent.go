package download

// User-Agent presets matching the choices offered by the submission form
var UAPresets = map[string]string{
	"chrome_win":     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"firefox_linux":  "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"safari_mac":     "Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	"chrome_android": "Mozilla/5.0 (Linux; Android 13; SM-S911B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
	"safari_ios":     "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
}

// DefaultUAChoice is applied when the submission names no preset
const DefaultUAChoice = "chrome_win"

// UAChoiceCustom selects the free-form User-Agent field of the form
const UAChoiceCustom = "custom"

// ResolveUserAgent maps the form's preset choice (or a custom string) to the
// User-Agent header sent by the external tool.
func ResolveUserAgent(choice, custom string) string {
	if choice == UAChoiceCustom && custom != "" {
		return custom
	}
	if ua, ok := UAPresets[choice]; ok {
		return ua
	}
	return UAPresets[DefaultUAChoice]
}
