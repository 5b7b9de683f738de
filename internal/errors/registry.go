package errors

import "slices"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Compile Errors (E100-E139)
	// ============================================

	"E100": {
		Category: CategoryCompile,
		Message:  "Template arity mismatch",
		Detail:   "A template needs exactly one more literal fragment than values.",
	},
	"E101": {
		Category: CategoryCompile,
		Message:  "Interpolation site cannot be classified",
		Detail:   "A reactive value appears where no binding applies: it is not an event or attribute value, not between attributes, and not the whole content of an element.",
	},
	"E102": {
		Category: CategoryCompile,
		Message:  "Content binding outside an element",
		Detail:   "A content binding needs an enclosing open element to target.",
	},
	"E103": {
		Category: CategoryCompile,
		Message:  "Unknown binding kind",
		Detail:   "The binding kind is not one of event, attribute, attributeSet, class, dataset, datasetSet, innerHTML, innerText or textContent.",
	},
	"E104": {
		Category: CategoryCompile,
		Message:  "Invalid marker reuse",
		Detail:   "A marker was requested for an element that cannot carry one.",
	},

	// ============================================
	// Hydration Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryHydration,
		Message:  "Marker has no pending bindings",
		Detail:   "An element carries a marker whose bindings were already resolved or never registered.",
	},
	"E141": {
		Category: CategoryHydration,
		Message:  "No sink registered for binding kind",
		Detail:   "The sink registry has no factory for this binding kind.",
	},

	// ============================================
	// Runtime Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryRuntime,
		Message:  "Source cannot be subscribed",
		Detail:   "The bound value is a callable or otherwise not a push, deferred or sequence source.",
	},
	"E161": {
		Category: CategoryRuntime,
		Message:  "Unhandled source error",
		Detail:   "A source reported an error and the binding declared no error callback.",
	},

	// ============================================
	// Config Errors (E180-E189)
	// ============================================

	"E180": {
		Category: CategoryConfig,
		Message:  "Cannot read configuration",
		Detail:   "The configuration file exists but could not be read or decoded.",
	},
	"E181": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration failed validation.",
	},

	// ============================================
	// CLI Errors (E190-E199)
	// ============================================

	"E190": {
		Category: CategoryCLI,
		Message:  "Cannot load template",
		Detail:   "The template could not be read from disk or remote storage.",
	},
	"E191": {
		Category: CategoryCLI,
		Message:  "Invalid template placeholder",
		Detail:   "A ${...} placeholder uses an unknown prefix or an empty name.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
