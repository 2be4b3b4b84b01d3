package services

import (
	"strings"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

var taskTypeSynonyms = map[string]models.TaskType{
	"vocabulary":    models.TaskTypeVocabulary,
	"vocab":         models.TaskTypeVocabulary,
	"words":         models.TaskTypeVocabulary,
	"flashcards":    models.TaskTypeVocabulary,
	"grammar":       models.TaskTypeGrammar,
	"syntax":        models.TaskTypeGrammar,
	"conversation":  models.TaskTypeConversation,
	"speak":         models.TaskTypeConversation,
	"speaking":      models.TaskTypeConversation,
	"dialogue":      models.TaskTypeConversation,
	"dialog":        models.TaskTypeConversation,
	"roleplay":      models.TaskTypeConversation,
	"role-play":     models.TaskTypeConversation,
	"listening":     models.TaskTypeListening,
	"listen":        models.TaskTypeListening,
	"audio":         models.TaskTypeListening,
	"reading":       models.TaskTypeReading,
	"read":          models.TaskTypeReading,
	"comprehension": models.TaskTypeReading,
	"writing":       models.TaskTypeWriting,
	"write":         models.TaskTypeWriting,
	"composition":   models.TaskTypeWriting,
	"pronunciation": models.TaskTypePronunciation,
	"phonetics":     models.TaskTypePronunciation,
	"cultural":      models.TaskTypeCultural,
	"culture":       models.TaskTypeCultural,
}

// NormalizeTaskType maps a provider-chosen task type onto the stored set.
// Matching ignores case and surrounding space. Unknown values become
// vocabulary; the second result reports whether the value was recognised.
func NormalizeTaskType(raw string) (models.TaskType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if t, ok := taskTypeSynonyms[key]; ok {
		return t, true
	}
	key = strings.NewReplacer("_", "", " ", "").Replace(key)
	if t, ok := taskTypeSynonyms[key]; ok {
		return t, true
	}
	return models.TaskTypeVocabulary, false
}
