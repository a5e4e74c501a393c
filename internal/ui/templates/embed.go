// Пакет templates — встроенные html/template шаблоны страниц UI.
package templates

import "embed"

// FS — layout.html и шаблоны страниц.
//
//go:embed *.html
var FS embed.FS
