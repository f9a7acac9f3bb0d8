package config

import (
	"fmt"

	"github.com/sv4u/saveimages/save/migrate"
	"github.com/sv4u/saveimages/save/naming"
)

var subjectLabels = map[Subject]string{
	SubjectImage:    migrate.LabelImage,
	SubjectMask:     migrate.LabelMask,
	SubjectCropping: migrate.LabelCropping,
	SubjectMovie:    migrate.LabelMovie,
	SubjectFigure:   migrate.LabelFigure,
}

var whenLabels = map[WhenToSave]string{
	SaveEveryCycle: migrate.LabelEveryCycle,
	SaveFirstCycle: migrate.LabelFirstCycle,
	SaveLastCycle:  migrate.LabelLastCycle,
}

// FromValues decodes a current-revision positional settings list.
func FromValues(values []string) (SaveSettings, error) {
	var s SaveSettings
	if len(values) != migrate.SettingCount {
		return s, &ConfigError{
			Message: fmt.Sprintf("expected %d positional settings, got %d", migrate.SettingCount, len(values)),
		}
	}

	subject, ok := lookupLabel(subjectLabels, values[migrate.IdxSubject])
	if !ok {
		return s, &ConfigError{Message: fmt.Sprintf("unknown save choice: %s", values[migrate.IdxSubject])}
	}
	method, err := naming.ParseMethod(values[migrate.IdxFileNameMethod])
	if err != nil {
		return s, &ConfigError{Message: err.Error()}
	}
	pathMode, err := naming.ParsePathMode(values[migrate.IdxPathnameChoice])
	if err != nil {
		return s, &ConfigError{Message: err.Error()}
	}
	when, ok := lookupLabel(whenLabels, values[migrate.IdxWhenToSave])
	if !ok {
		return s, &ConfigError{Message: fmt.Sprintf("unknown save point: %s", values[migrate.IdxWhenToSave])}
	}
	overwrite := parseBinary(values[migrate.IdxOverwriteCheck])

	s = SaveSettings{
		Subject:              subject,
		ImageName:            unsetIfNone(values[migrate.IdxImageName]),
		FigureName:           unsetIfNone(values[migrate.IdxFigureName]),
		FileNameMethod:       method,
		FileImageName:        unsetIfNone(values[migrate.IdxFileImageName]),
		SingleFileName:       values[migrate.IdxSingleFileName],
		FileNameSuffix:       values[migrate.IdxFileNameSuffix],
		FileFormat:           values[migrate.IdxFileFormat],
		PathnameChoice:       pathMode,
		Pathname:             unsetIfNone(values[migrate.IdxPathname]),
		BitDepth:             values[migrate.IdxBitDepth],
		OverwriteCheck:       &overwrite,
		WhenToSave:           when,
		WhenToSaveMovie:      movieSavingFromLabel(values[migrate.IdxWhenToSaveMovie]),
		Rescale:              parseBinary(values[migrate.IdxRescale]),
		Colormap:             values[migrate.IdxColormap],
		UpdateFileNames:      parseBinary(values[migrate.IdxUpdateFileNames]),
		CreateSubdirectories: parseBinary(values[migrate.IdxCreateSubdirectories]),
	}
	return s, nil
}

// Values encodes s in the current positional layout.
func (s *SaveSettings) Values() []string {
	values := make([]string, migrate.SettingCount)
	values[migrate.IdxSubject] = subjectLabels[s.Subject]
	values[migrate.IdxImageName] = noneIfUnset(s.ImageName)
	values[migrate.IdxFigureName] = noneIfUnset(s.FigureName)
	values[migrate.IdxFileNameMethod] = s.FileNameMethod.Label()
	values[migrate.IdxFileImageName] = noneIfUnset(s.FileImageName)
	values[migrate.IdxSingleFileName] = s.SingleFileName
	values[migrate.IdxFileNameSuffix] = s.FileNameSuffix
	values[migrate.IdxFileFormat] = s.FileFormat
	values[migrate.IdxPathnameChoice] = s.PathnameChoice.Label()
	values[migrate.IdxPathname] = s.Pathname
	values[migrate.IdxBitDepth] = s.BitDepth
	values[migrate.IdxOverwriteCheck] = formatBinary(s.ShouldCheckOverwrite())
	values[migrate.IdxWhenToSave] = whenLabels[s.WhenToSave]
	values[migrate.IdxWhenToSaveMovie] = movieSavingLabel(s.WhenToSaveMovie)
	values[migrate.IdxRescale] = formatBinary(s.Rescale)
	values[migrate.IdxColormap] = s.Colormap
	values[migrate.IdxUpdateFileNames] = formatBinary(s.UpdateFileNames)
	values[migrate.IdxCreateSubdirectories] = formatBinary(s.CreateSubdirectories)
	return values
}

// FromLegacy upgrades a positional list of any known version and decodes it.
func FromLegacy(values []string, version migrate.Version) (SaveSettings, error) {
	upgraded, _, err := migrate.Default().Upgrade(values, version)
	if err != nil {
		return SaveSettings{}, &ConfigError{Message: err.Error()}
	}
	return FromValues(upgraded)
}

func lookupLabel[T comparable](labels map[T]string, label string) (T, bool) {
	for k, v := range labels {
		if v == label {
			return k, true
		}
	}
	var zero T
	return zero, false
}

func movieSavingFromLabel(label string) string {
	if label == migrate.LabelLastCycle {
		return string(SaveLastCycle)
	}
	return label
}

func movieSavingLabel(value string) string {
	if value == string(SaveLastCycle) {
		return migrate.LabelLastCycle
	}
	return value
}

func parseBinary(v string) bool {
	return v == migrate.LabelYes
}

func formatBinary(b bool) string {
	if b {
		return migrate.LabelYes
	}
	return migrate.LabelNo
}

func unsetIfNone(v string) string {
	if v == migrate.LabelNone {
		return ""
	}
	return v
}

func noneIfUnset(v string) string {
	if v == "" {
		return migrate.LabelNone
	}
	return v
}
