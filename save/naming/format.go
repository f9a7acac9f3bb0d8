package naming

// Output file formats, named by their on-disk extension.
const (
	FormatBMP  = "bmp"
	FormatGIF  = "gif"
	FormatHDF  = "hdf"
	FormatJPG  = "jpg"
	FormatJPEG = "jpeg"
	FormatPBM  = "pbm"
	FormatPCX  = "pcx"
	FormatPGM  = "pgm"
	FormatPNG  = "png"
	FormatPNM  = "pnm"
	FormatPPM  = "ppm"
	FormatRAS  = "ras"
	FormatTIF  = "tif"
	FormatTIFF = "tiff"
	FormatXWD  = "xwd"
	FormatAVI  = "avi"
	FormatMAT  = "mat"
)

// Formats lists every extension accepted in a NamingConfig.
var Formats = []string{
	FormatBMP, FormatGIF, FormatHDF, FormatJPG, FormatJPEG,
	FormatPBM, FormatPCX, FormatPGM, FormatPNG, FormatPNM,
	FormatPPM, FormatRAS, FormatTIF, FormatTIFF, FormatXWD,
	FormatAVI, FormatMAT,
}

// encoderAliases maps short extensions to the format name encoders expect.
// The extension written to disk is left as configured.
var encoderAliases = map[string]string{
	FormatJPG: FormatJPEG,
	FormatTIF: FormatTIFF,
}

// KnownFormat reports whether ext is in the format table.
func KnownFormat(ext string) bool {
	for _, f := range Formats {
		if f == ext {
			return true
		}
	}
	return false
}

// EncoderFormat returns the format name to hand to an encoder for the
// configured extension: jpg becomes jpeg and tif becomes tiff. ext must be
// an exact entry of Formats; ".png" or "PNG" are rejected because the
// extension is written to disk as given.
func EncoderFormat(ext string) (string, error) {
	if !KnownFormat(ext) {
		return "", &ResolveError{
			Kind:    ErrUnknownExtensionFormat,
			Field:   "extension",
			Message: "format " + ext + " is not supported",
		}
	}
	if canonical, ok := encoderAliases[ext]; ok {
		return canonical, nil
	}
	return ext, nil
}
