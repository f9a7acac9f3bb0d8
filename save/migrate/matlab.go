package migrate

import (
	"fmt"
	"strings"

	"github.com/sv4u/saveimages/save/naming"
)

// matlabUnset is how the MATLAB release wrote an unused text setting.
const matlabUnset = `\`

func matlabSteps() []Step {
	return []Step{
		StepFunc{Version: Version{Revision: 12, FromMatlab: true}, Fn: upgradeMatlab12},
		StepFunc{Version: Version{Revision: 13, FromMatlab: true}, Fn: upgradeMatlab13},
		StepFunc{Version: Version{Revision: 14, FromMatlab: true}, Fn: upgradeMatlab14},
	}
}

// Revision 13 added "create subdirectories" with a default of No.
func upgradeMatlab12(values []string) ([]string, Version, error) {
	from := Version{Revision: 12, FromMatlab: true}
	if len(values) != 13 {
		return nil, from, lengthError(from, 13, len(values))
	}
	return append(values, LabelNo), Version{Revision: 13, FromMatlab: true}, nil
}

// Revision 14 stopped writing a backslash for an unset file format or
// update-file-names value.
func upgradeMatlab13(values []string) ([]string, Version, error) {
	from := Version{Revision: 13, FromMatlab: true}
	if len(values) != 14 {
		return nil, from, lengthError(from, 14, len(values))
	}
	for _, i := range []int{3, 12} {
		if values[i] == matlabUnset {
			values[i] = naming.DoNotUse
		}
	}
	return values, Version{Revision: 14, FromMatlab: true}, nil
}

// upgradeMatlab14 rewrites the MATLAB layout into native revision 1.
//
// MATLAB layout: 0 image (or figure number), 1 file name pattern, 2 appended
// text, 3 format, 4 directory, 5-10 bit depth .. colormap, 11 unused,
// 12 update file names, 13 create subdirectories.
func upgradeMatlab14(values []string) ([]string, Version, error) {
	from := Version{Revision: 14, FromMatlab: true}
	if len(values) != 14 {
		return nil, from, lengthError(from, 14, len(values))
	}

	out := make([]string, 0, SettingCount)
	image := values[0]
	switch {
	case isDigits(image):
		out = append(out, LabelFigure, values[1])
	case values[3] == naming.FormatAVI:
		out = append(out, LabelMovie, image)
	case strings.HasPrefix(image, "Cropping"):
		out = append(out, LabelCropping, strings.TrimPrefix(image, "Cropping"))
	case strings.HasPrefix(image, "CropMask"):
		out = append(out, LabelMask, strings.TrimPrefix(image, "CropMask"))
	default:
		out = append(out, LabelImage, image)
	}
	out = append(out, out[IdxImageName])

	pattern := values[1]
	switch {
	case pattern == "N":
		out = append(out, naming.MethodSequential.Label(), LabelNone, LabelNone)
	case strings.HasPrefix(pattern, "="):
		out = append(out, naming.MethodSingleName.Label(), pattern[1:], pattern[1:])
	case len(naming.FindMetadataTokens(pattern)) > 0:
		out = append(out, naming.MethodWithMetadata.Label(), pattern, pattern)
	default:
		out = append(out, naming.MethodFromImage.Label(), pattern, pattern)
	}

	out = append(out, values[2], values[3])

	switch dir := values[4]; {
	case dir == ".":
		out = append(out, naming.PathDefaultOutputDir.Label(), LabelNone)
	case dir == "&":
		out = append(out, naming.PathWithImageDir.Label(), LabelNone)
	case len(naming.FindMetadataTokens(dir)) > 0:
		out = append(out, naming.PathCustomWithMetadata.Label(), dir)
	default:
		out = append(out, naming.PathCustom.Label(), dir)
	}

	out = append(out, values[5:11]...)
	out = append(out, values[12:]...)
	if len(out) != SettingCount {
		return nil, from, &MigrationError{From: from, Message: fmt.Sprintf("produced %d settings, want %d", len(out), SettingCount)}
	}
	return out, Current, nil
}

func lengthError(from Version, want, got int) *MigrationError {
	return &MigrationError{From: from, Message: fmt.Sprintf("expected %d settings, got %d", want, got)}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
