// Package migrate upgrades positional SaveImages settings written by older
// releases to the current layout, one revision at a time.
package migrate

// Position of each setting in the current (revision 1) layout.
const (
	IdxSubject = iota
	IdxImageName
	IdxFigureName
	IdxFileNameMethod
	IdxFileImageName
	IdxSingleFileName
	IdxFileNameSuffix
	IdxFileFormat
	IdxPathnameChoice
	IdxPathname
	IdxBitDepth
	IdxOverwriteCheck
	IdxWhenToSave
	IdxWhenToSaveMovie
	IdxRescale
	IdxColormap
	IdxUpdateFileNames
	IdxCreateSubdirectories

	// SettingCount is the length of a current positional settings list.
	SettingCount
)

// Labels used in positional settings.
const (
	LabelImage    = "Image"
	LabelMask     = "Mask"
	LabelCropping = "Cropping"
	LabelFigure   = "Figure"
	LabelMovie    = "Movie"

	LabelEveryCycle = "Every cycle"
	LabelFirstCycle = "First cycle"
	LabelLastCycle  = "Last cycle"

	LabelYes = "Yes"
	LabelNo  = "No"

	// LabelNone marks an unset subscriber setting.
	LabelNone = "None"
)
