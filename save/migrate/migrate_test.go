package migrate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sv4u/saveimages/save/naming"
)

func matlab14(image, pattern, dir string) []string {
	return []string{
		image, pattern, "_out", "png", dir,
		"8", "Yes", LabelEveryCycle, LabelLastCycle, "No", "gray",
		"unused", "No", "No",
	}
}

func TestUpgrade_Matlab14_ImageFromFilename(t *testing.T) {
	out, v, err := Default().Upgrade(matlab14("OrigBlue", "OrigBlue", "."), Version{Revision: 14, FromMatlab: true})
	require.NoError(t, err)
	assert.Equal(t, Current, v)
	require.Len(t, out, SettingCount)

	assert.Equal(t, LabelImage, out[IdxSubject])
	assert.Equal(t, "OrigBlue", out[IdxImageName])
	assert.Equal(t, "OrigBlue", out[IdxFigureName])
	assert.Equal(t, naming.MethodFromImage.Label(), out[IdxFileNameMethod])
	assert.Equal(t, "OrigBlue", out[IdxFileImageName])
	assert.Equal(t, "_out", out[IdxFileNameSuffix])
	assert.Equal(t, "png", out[IdxFileFormat])
	assert.Equal(t, naming.PathDefaultOutputDir.Label(), out[IdxPathnameChoice])
	assert.Equal(t, LabelNone, out[IdxPathname])
	assert.Equal(t, "8", out[IdxBitDepth])
	assert.Equal(t, "gray", out[IdxColormap])
	assert.Equal(t, "No", out[IdxUpdateFileNames])
	assert.Equal(t, "No", out[IdxCreateSubdirectories])
}

func TestUpgrade_Matlab14_Variants(t *testing.T) {
	tests := []struct {
		name        string
		values      []string
		subject     string
		imageName   string
		method      naming.Method
		singleName  string
		pathChoice  naming.PathMode
		pathnameOut string
	}{
		{
			name:       "figure number",
			values:     matlab14("3", "fig", "."),
			subject:    LabelFigure,
			imageName:  "fig",
			method:     naming.MethodFromImage,
			singleName: "fig",
			pathChoice: naming.PathDefaultOutputDir,
		},
		{
			name:       "cropping sequential",
			values:     matlab14("CroppingDNA", "N", "&"),
			subject:    LabelCropping,
			imageName:  "DNA",
			method:     naming.MethodSequential,
			singleName: LabelNone,
			pathChoice: naming.PathWithImageDir,
		},
		{
			name:        "mask single name custom",
			values:      matlab14("CropMaskDNA", "=mask", "/tmp/out"),
			subject:     LabelMask,
			imageName:   "DNA",
			method:      naming.MethodSingleName,
			singleName:  "mask",
			pathChoice:  naming.PathCustom,
			pathnameOut: "/tmp/out",
		},
		{
			name:        "metadata name and directory",
			values:      matlab14("DNA", `\g<plate>_\g<well>`, `/out/\g<plate>`),
			subject:     LabelImage,
			imageName:   "DNA",
			method:      naming.MethodWithMetadata,
			singleName:  `\g<plate>_\g<well>`,
			pathChoice:  naming.PathCustomWithMetadata,
			pathnameOut: `/out/\g<plate>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := Default().Upgrade(tt.values, Version{Revision: 14, FromMatlab: true})
			require.NoError(t, err)
			require.Len(t, out, SettingCount)
			assert.Equal(t, tt.subject, out[IdxSubject])
			assert.Equal(t, tt.imageName, out[IdxImageName])
			assert.Equal(t, tt.method.Label(), out[IdxFileNameMethod])
			assert.Equal(t, tt.singleName, out[IdxSingleFileName])
			assert.Equal(t, tt.pathChoice.Label(), out[IdxPathnameChoice])
			if tt.pathnameOut != "" {
				assert.Equal(t, tt.pathnameOut, out[IdxPathname])
			}
		})
	}
}

func TestUpgrade_MovieFromAviFormat(t *testing.T) {
	values := matlab14("DNA", "movie", ".")
	values[3] = naming.FormatAVI
	out, _, err := Default().Upgrade(values, Version{Revision: 14, FromMatlab: true})
	require.NoError(t, err)
	assert.Equal(t, LabelMovie, out[IdxSubject])
	assert.Equal(t, "avi", out[IdxFileFormat])
}

func TestUpgrade_ChainFromMatlab12(t *testing.T) {
	values := matlab14("DNA", "DNA", ".")[:13]
	values[3] = `\`
	values[12] = `\`

	out, v, err := Default().Upgrade(values, Version{Revision: 12, FromMatlab: true})
	require.NoError(t, err)
	assert.Equal(t, Current, v)
	require.Len(t, out, SettingCount)
	assert.Equal(t, naming.DoNotUse, out[IdxFileFormat])
	assert.Equal(t, naming.DoNotUse, out[IdxUpdateFileNames])
	assert.Equal(t, LabelNo, out[IdxCreateSubdirectories])
	assert.Equal(t, `\`, values[3], "input must not be modified")
}

func TestUpgrade_CurrentIsNoop(t *testing.T) {
	in := make([]string, SettingCount)
	out, v, err := Default().Upgrade(in, Current)
	require.NoError(t, err)
	assert.Equal(t, Current, v)
	assert.Equal(t, in, out)
}

func TestUpgrade_NoPath(t *testing.T) {
	_, _, err := Default().Upgrade([]string{"a"}, Version{Revision: 9, FromMatlab: true})
	var merr *MigrationError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, Version{Revision: 9, FromMatlab: true}, merr.From)
}

func TestUpgrade_WrongLength(t *testing.T) {
	_, _, err := Default().Upgrade([]string{"a", "b"}, Version{Revision: 14, FromMatlab: true})
	var merr *MigrationError
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Error(), "expected 14 settings")
}

func TestUpgrade_StepMustAdvance(t *testing.T) {
	stuck := Version{Revision: 2}
	m := New(Version{Revision: 3}, StepFunc{
		Version: stuck,
		Fn: func(values []string) ([]string, Version, error) {
			return values, stuck, nil
		},
	})
	_, _, err := m.Upgrade(nil, stuck)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not advance")
}

func TestUpgrade_CustomChain(t *testing.T) {
	v1, v2, v3 := Version{Revision: 1}, Version{Revision: 2}, Version{Revision: 3}
	m := New(v3,
		StepFunc{Version: v2, Fn: func(values []string) ([]string, Version, error) {
			return append(values, "c"), v3, nil
		}},
		StepFunc{Version: v1, Fn: func(values []string) ([]string, Version, error) {
			return append(values, "b"), v2, nil
		}},
	)
	out, v, err := m.Upgrade([]string{"a"}, v1)
	require.NoError(t, err)
	assert.Equal(t, v3, v)
	assert.Equal(t, []string{"a", "b", "c"}, out)
	assert.Equal(t, v3, m.Target())
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "matlab/14", Version{Revision: 14, FromMatlab: true}.String())
	assert.Equal(t, "native/1", Current.String())
}
