package speaker

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed default_speakers/*.json
var defaultSpeakersFS embed.FS

// defaultSpeakers maps language code to speaker name to bundled profile file.
// The catalog is fixed at build time and never mutated.
var defaultSpeakers = map[string]map[string]string{
	"en": {
		"male_1":   "en_male_1.json",
		"male_2":   "en_male_2.json",
		"male_3":   "en_male_3.json",
		"male_4":   "en_male_4.json",
		"female_1": "en_female_1.json",
		"female_2": "en_female_2.json",
	},
	"ja": {
		"male_1":   "ja_male_1.json",
		"female_1": "ja_female_1.json",
		"female_2": "ja_female_2.json",
		"female_3": "ja_female_3.json",
	},
	"ko": {
		"male_1":   "ko_male_1.json",
		"male_2":   "ko_male_2.json",
		"female_1": "ko_female_1.json",
		"female_2": "ko_female_2.json",
	},
	"zh": {
		"male_1":   "zh_male_1.json",
		"female_1": "zh_female_1.json",
	},
}

// Default returns the bundled profile for (language, name). It fails with
// ErrNotFound when either the language or the name is absent from the catalog.
func Default(language, name string) (*Profile, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	name = strings.ToLower(strings.TrimSpace(name))

	speakers, ok := defaultSpeakers[language]
	if !ok {
		return nil, fmt.Errorf("%w: no default speakers for language %q", ErrNotFound, language)
	}

	file, ok := speakers[name]
	if !ok {
		return nil, fmt.Errorf("%w: speaker %q for language %q", ErrNotFound, name, language)
	}

	data, err := defaultSpeakersFS.ReadFile("default_speakers/" + file)
	if err != nil {
		return nil, fmt.Errorf("read bundled speaker %q: %w", file, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode bundled speaker %q: %w", file, err)
	}

	return &p, nil
}

// DefaultNames lists the catalog's speaker names for a language, sorted.
// An unknown language yields an empty list.
func DefaultNames(language string) []string {
	speakers, ok := defaultSpeakers[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(speakers))
	for name := range speakers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// DefaultLanguages lists the languages present in the catalog, sorted.
func DefaultLanguages() []string {
	langs := make([]string, 0, len(defaultSpeakers))
	for lang := range defaultSpeakers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	return langs
}
