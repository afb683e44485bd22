package language

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Target describes one supported dubbing language.
type Target struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	NativeName  string `json:"native_name"`
	MaleVoice   string `json:"-"`
	FemaleVoice string `json:"-"`
}

type entry struct {
	code        string
	maleVoice   string
	femaleVoice string
}

var targets = []entry{
	{"ar", "ar-SA-HamedNeural", "ar-SA-ZariyahNeural"},
	{"de", "de-DE-ConradNeural", "de-DE-KatjaNeural"},
	{"en", "en-US-GuyNeural", "en-US-JennyNeural"},
	{"es", "es-ES-AlvaroNeural", "es-ES-ElviraNeural"},
	{"fr", "fr-FR-HenriNeural", "fr-FR-DeniseNeural"},
	{"hi", "hi-IN-MadhurNeural", "hi-IN-SwaraNeural"},
	{"it", "it-IT-DiegoNeural", "it-IT-ElsaNeural"},
	{"ja", "ja-JP-KeitaNeural", "ja-JP-NanamiNeural"},
	{"ko", "ko-KR-InJoonNeural", "ko-KR-SunHiNeural"},
	{"nl", "nl-NL-MaartenNeural", "nl-NL-ColetteNeural"},
	{"pl", "pl-PL-MarekNeural", "pl-PL-ZofiaNeural"},
	{"pt", "pt-BR-AntonioNeural", "pt-BR-FranciscaNeural"},
	{"ru", "ru-RU-DmitryNeural", "ru-RU-SvetlanaNeural"},
	{"tr", "tr-TR-AhmetNeural", "tr-TR-EmelNeural"},
	{"zh", "zh-CN-YunxiNeural", "zh-CN-XiaoxiaoNeural"},
}

var byCode = func() map[string]entry {
	m := make(map[string]entry, len(targets))
	for _, e := range targets {
		m[e.code] = e
	}
	return m
}()

// Normalize lowercases and trims a language code and resolves common aliases
// through the BCP 47 matcher ("spanish" is not accepted, "es-MX" maps to es).
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if _, ok := byCode[code]; ok {
		return code
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	if _, ok := byCode[base.String()]; ok {
		return base.String()
	}
	return ""
}

// Supported reports whether the code resolves to a dubbing target.
func Supported(code string) bool {
	return Normalize(code) != ""
}

// Lookup resolves a code to its Target, with display names filled in.
func Lookup(code string) (Target, bool) {
	normalized := Normalize(code)
	if normalized == "" {
		return Target{}, false
	}
	e := byCode[normalized]
	return describe(e), true
}

// Voice returns the synthesis voice for the code and gender. Gender defaults
// to female for any value other than "male".
func Voice(code, gender string) (string, bool) {
	normalized := Normalize(code)
	if normalized == "" {
		return "", false
	}
	e := byCode[normalized]
	if strings.EqualFold(strings.TrimSpace(gender), "male") {
		return e.maleVoice, true
	}
	return e.femaleVoice, true
}

// All returns every supported target sorted by English display name.
func All() []Target {
	out := make([]Target, 0, len(targets))
	for _, e := range targets {
		out = append(out, describe(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func describe(e entry) Target {
	tag := language.MustParse(e.code)
	return Target{
		Code:        e.code,
		Name:        display.English.Languages().Name(tag),
		NativeName:  display.Self.Name(tag),
		MaleVoice:   e.maleVoice,
		FemaleVoice: e.femaleVoice,
	}
}
