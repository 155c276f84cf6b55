package domain

import "path/filepath"

// Presets are ready-made sources for common setups. IDs are left empty and
// assigned when the preset is added.

// LocalDocumentsPreset indexes office and text documents below the user's
// Documents and Desktop folders once a day.
func LocalDocumentsPreset(home string) Source {
	s := NewSource("", SourceKindLocal, "Documents")
	s.ScopePaths = []string{filepath.Join(home, "Documents"), filepath.Join(home, "Desktop")}
	s.IncludePatterns = []string{
		"*.pdf", "*.docx", "*.doc", "*.xlsx", "*.xls", "*.pptx", "*.ppt",
		"*.txt", "*.md", "*.eml", "*.msg", "*.csv", "*.html", "*.htm",
		"*.xml", "*.json", "*.rtf", "*.odt", "*.ods",
	}
	s.ExcludePatterns = []string{
		"*.tmp", "*.bak", "~*", "Thumbs.db", "desktop.ini",
		"node_modules/**", ".git/**", ".svn/**",
	}
	s.Schedule = ScheduleDaily
	s.StartHour = 12
	s.MaxDurationMinutes = 30
	s.Direction = IndexDirectionNewestFirst
	s.ChangeDetection = ChangeDetectionMtimeThenHash
	return s
}

// MailPreset indexes a local mail store.
func MailPreset(mailDir string) Source {
	s := NewSource("", SourceKindMail, "Mail")
	s.ScopePaths = []string{mailDir}
	s.MaxDepth = 3
	s.MaxFileSizeBytes = 10 * 1024 * 1024 * 1024
	s.Schedule = ScheduleDaily
	s.StartHour = 12
	s.MaxDurationMinutes = 30
	s.Direction = IndexDirectionNewestFirst
	s.MaxChunksPerItem = 50
	return s
}

// CalendarPreset indexes iCalendar files so appointments can be searched
// separately from mail.
func CalendarPreset(calendarDir string) Source {
	s := NewSource("", SourceKindLocal, "Calendar")
	s.ScopePaths = []string{calendarDir}
	s.IncludePatterns = []string{"*.ics"}
	s.MaxDepth = 3
	s.Schedule = ScheduleDaily
	s.StartHour = 12
	s.StartMinute = 5
	s.MaxDurationMinutes = 15
	s.Direction = IndexDirectionNewestFirst
	s.ChunkSize = 256
	s.ChunkOverlap = 32
	s.MaxChunksPerItem = 10
	return s
}

// PresetNames lists the names accepted by Preset.
var PresetNames = []string{"documents", "mail", "calendar"}

// Preset returns a named preset rooted at home.
func Preset(name, home string) (Source, bool) {
	switch name {
	case "documents":
		return LocalDocumentsPreset(home), true
	case "mail":
		return MailPreset(filepath.Join(home, "Mail")), true
	case "calendar":
		return CalendarPreset(filepath.Join(home, ".local", "share", "calendars")), true
	default:
		return Source{}, false
	}
}

// DefaultPresets returns every preset rooted at home.
func DefaultPresets(home string) []Source {
	out := make([]Source, 0, len(PresetNames))
	for _, name := range PresetNames {
		s, _ := Preset(name, home)
		out = append(out, s)
	}
	return out
}
