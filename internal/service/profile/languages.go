package profile

import "sort"

var languageNames = map[string]string{
	"en":    "English",
	"es":    "Spanish",
	"fr":    "French",
	"de":    "German",
	"it":    "Italian",
	"pt":    "Portuguese",
	"ru":    "Russian",
	"ja":    "Japanese",
	"ko":    "Korean",
	"zh-cn": "Chinese (Simplified)",
	"zh-tw": "Chinese (Traditional)",
	"ar":    "Arabic",
	"hi":    "Hindi",
	"th":    "Thai",
	"vi":    "Vietnamese",
	"id":    "Indonesian",
	"pl":    "Polish",
	"nl":    "Dutch",
	"sv":    "Swedish",
	"da":    "Danish",
	"no":    "Norwegian",
	"fi":    "Finnish",
	"tr":    "Turkish",
	"el":    "Greek",
	"he":    "Hebrew",
	"uk":    "Ukrainian",
	"cs":    "Czech",
	"hu":    "Hungarian",
	"ro":    "Romanian",
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists the supported UI languages sorted by code.
func Languages() []Language {
	out := make([]Language, 0, len(languageNames))
	for code, name := range languageNames {
		out = append(out, Language{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
