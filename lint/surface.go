// ABOUTME: Declared API surface for the target plugin runtime: known namespace methods,
// ABOUTME: node properties, and the ignore-list of diagnostics the runtime tolerates.
package lint

import "regexp"

// Surface describes the target API's declared shape. It is built once at
// startup, never mutated afterwards, and safe to share across concurrent runs.
type Surface struct {
	// methods enumerates the allowed calls through the "figma" namespace.
	methods map[string]bool
	// nodeProps enumerates assignable node properties.
	nodeProps map[string]bool
	// ignores suppresses diagnostics the runtime is known to accept even
	// though a static checker cannot prove them safe.
	ignores []*regexp.Regexp
}

// figmaMethods is the enumerated allow-list for calls through the system namespace.
var figmaMethods = []string{
	"createFrame", "createText", "createRectangle", "createEllipse",
	"createLine", "createPolygon", "createStar", "createVector",
	"createComponent", "createComponentFromNode", "createPage",
	"createNodeFromSvg", "combineAsVariants", "group", "ungroup", "flatten",
	"union", "subtract", "intersect", "exclude",
	"getNodeById", "getNodeByIdAsync", "getStyleById",
	"getLocalPaintStyles", "getLocalTextStyles", "getLocalEffectStyles",
	"loadFontAsync", "listAvailableFontsAsync",
	"notify", "commitUndo", "triggerUndo",
	"closePlugin", "showUI",
}

// knownNodeProps lists assignable properties across the node types the
// generator is allowed to touch.
var knownNodeProps = []string{
	"name", "x", "y", "width", "height", "rotation", "opacity", "visible",
	"locked", "fills", "strokes", "strokeWeight", "strokeAlign", "effects",
	"cornerRadius", "topLeftRadius", "topRightRadius", "bottomLeftRadius",
	"bottomRightRadius",
	"layoutMode", "layoutWrap", "layoutAlign", "layoutGrow",
	"layoutSizingHorizontal", "layoutSizingVertical",
	"primaryAxisSizingMode", "counterAxisSizingMode",
	"primaryAxisAlignItems", "counterAxisAlignItems",
	"paddingLeft", "paddingRight", "paddingTop", "paddingBottom",
	"itemSpacing", "counterAxisSpacing",
	"characters", "fontSize", "fontName", "textAlignHorizontal",
	"textAlignVertical", "textAutoResize", "letterSpacing", "lineHeight",
	"textCase", "textDecoration",
	"constraints", "clipsContent", "expanded", "isMask", "blendMode",
}

// ignoredDiagnostics are message patterns suppressed during the type check.
// The runtime accepts these even though static analysis cannot prove safety.
var ignoredDiagnostics = []string{
	`element access expression`,       // dynamic bracket-notation property access
	`\bbracket notation\b`,            // same, alternate phrasing
	`is not assignable to .*Iterable`, // generic-container iteration
	`for\.\.\.of .*children`,          // iterating mixed child collections
	`'mixed'`,                         // the documented ambiguous sentinel type
	`figma\.mixed`,
}

// NewSurface builds the default declared API surface.
func NewSurface() *Surface {
	s := &Surface{
		methods:   make(map[string]bool, len(figmaMethods)),
		nodeProps: make(map[string]bool, len(knownNodeProps)),
	}
	for _, m := range figmaMethods {
		s.methods[m] = true
	}
	for _, p := range knownNodeProps {
		s.nodeProps[p] = true
	}
	for _, pat := range ignoredDiagnostics {
		s.ignores = append(s.ignores, regexp.MustCompile(pat))
	}
	return s
}

// AllowsMethod reports whether the system namespace declares the given method.
func (s *Surface) AllowsMethod(name string) bool {
	return s.methods[name]
}

// KnownProp reports whether the given node property is declared assignable.
func (s *Surface) KnownProp(name string) bool {
	return s.nodeProps[name]
}

// Ignorable reports whether a diagnostic message matches the ignore-list.
func (s *Surface) Ignorable(message string) bool {
	for _, re := range s.ignores {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}
