package widget

import _ "embed"

// WidgetJS is the embeddable loader served at /chat/widget.js.
//
//go:embed widget.js
var WidgetJS []byte
