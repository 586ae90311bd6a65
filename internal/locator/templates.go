package locator

// VersionLookup holds the regex fragments substituted for template
// placeholders when matching globbed paths.
var VersionLookup = map[string]string{
	"version": `\d+\.\d+(\.\d+)*`,
}

// DefaultTemplates lists executable path templates per GOOS.
//
// Blender can live anywhere, so every OS starts with a $BLENDER_BIN_DIR entry
// pointing straight at an install directory. Those entries carry no version.
var DefaultTemplates = map[string][]string{
	"darwin": {
		"$BLENDER_BIN_DIR/Blender {version}",
		"/Applications/Blender{version}.app/Contents/MacOS/Blender",
		"/Applications/Blender.app/Contents/MacOS/Blender",
	},
	"windows": {
		"$BLENDER_BIN_DIR/blender.exe",
		"$USERPROFILE/AppData/Roaming/Blender Foundation/Blender/{version}/blender.exe",
		"C:/Program Files/Blender Foundation/Blender {version}/blender.exe",
		"C:/Program Files/Blender Foundation/Blender/blender.exe",
	},
	"linux": {
		"$BLENDER_BIN_DIR/blender",
		"/usr/share/blender/blender",
		"~/blender-{version}-linux-x64/blender",
		"/opt/blender-{version}-linux-x64/blender",
	},
}
