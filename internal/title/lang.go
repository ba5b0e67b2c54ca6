// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package title

import "golang.org/x/text/language"

// supported lists the languages with localized default labels and
// prompt phrasing, in matcher priority order. English is the fallback.
var supported = []language.Tag{
	language.English,
	language.SimplifiedChinese,
	language.TraditionalChinese,
	language.Japanese,
	language.Korean,
	language.German,
	language.French,
	language.Spanish,
	language.Portuguese,
	language.Russian,
}

var matcher = language.NewMatcher(supported)

var defaultLabels = map[language.Tag]string{
	language.English:            "New Chat",
	language.SimplifiedChinese:  "新对话",
	language.TraditionalChinese: "新對話",
	language.Japanese:           "新しいチャット",
	language.Korean:             "새 채팅",
	language.German:             "Neuer Chat",
	language.French:             "Nouvelle discussion",
	language.Spanish:            "Nuevo chat",
	language.Portuguese:         "Novo chat",
	language.Russian:            "Новый чат",
}

var promptLanguages = map[language.Tag]string{
	language.English:            "English",
	language.SimplifiedChinese:  "Simplified Chinese",
	language.TraditionalChinese: "Traditional Chinese",
	language.Japanese:           "Japanese",
	language.Korean:             "Korean",
	language.German:             "German",
	language.French:             "French",
	language.Spanish:            "Spanish",
	language.Portuguese:         "Portuguese",
	language.Russian:            "Russian",
}

// match resolves a BCP-47 tag (e.g. "zh-CN", "pt-BR") to the closest
// supported language. Unparseable or unknown tags resolve to English.
func match(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, index, _ := matcher.Match(tag)
	return supported[index]
}

// DefaultLabel returns the localized label shown for conversations
// whose title is the empty-string sentinel.
func DefaultLabel(lang string) string {
	return defaultLabels[match(lang)]
}

// promptLanguage returns the language name used in the summarization
// instruction, so generated titles come back in the UI language.
func promptLanguage(lang string) string {
	return promptLanguages[match(lang)]
}
