package pathmap

import "strings"

// binaryExtensions is the closed set of extensions the collection pass never
// queues for transcoding: their bytes are copied through unchanged (spec.md
// scenario S8).
var binaryExtensions = map[string]struct{}{
	".aif":    {},
	".bin":    {},
	".bmp":    {},
	".cur":    {},
	".gif":    {},
	".icm":    {},
	".ico":    {},
	".jpeg":   {},
	".jpg":    {},
	".m4a":    {},
	".m4v":    {},
	".mov":    {},
	".mp3":    {},
	".mp4":    {},
	".mpg":    {},
	".oga":    {},
	".ogg":    {},
	".ogv":    {},
	".otf":    {},
	".pdf":    {},
	".png":    {},
	".sitx":   {},
	".swf":    {},
	".tiff":   {},
	".ttf":    {},
	".wav":    {},
	".webm":   {},
	".webp":   {},
	".woff":   {},
	".woff2":  {},
	".zip":    {},
	".eot":    {},
	".marisa": {},
	".xls":    {},
	".xlsx":   {},
	".psd":    {},
}

// IsBinaryExtension reports whether name has one of the extensions the
// splitter treats as opaque binary content.
func IsBinaryExtension(name string) bool {
	ext := strings.ToLower(extOf(name))
	_, ok := binaryExtensions[ext]
	return ok
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i:]
}
