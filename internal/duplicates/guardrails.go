package duplicates

import (
	"mediavault/internal/catalog"
	"mediavault/internal/language"
)

// LanguageConcernReason is the fixed reason attached when removing an asset
// would discard the library's only English audio track.
const LanguageConcernReason = "would remove only English audio track"

// CheckLanguageGuardrail compares a removal candidate against the better
// asset that would remain. It reports whether the removal raises a language
// concern and whether the candidate is a foreign-language title (English
// subtitles over non-English audio), which exempts it from the guardrail.
func CheckLanguageGuardrail(candidate, better *catalog.MediaAsset) (concern bool, reason string, foreignTitle bool) {
	if better == nil {
		return false, "", false
	}
	if candidate.HasEnglishAudio() && !better.HasEnglishAudio() {
		return true, LanguageConcernReason, false
	}
	if !candidate.HasEnglishAudio() && candidate.HasEnglishSubtitles() &&
		!language.IsEnglish(candidate.DominantAudioLang) {
		return false, "", true
	}
	return false, "", false
}
