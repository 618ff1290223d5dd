package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://vango.dev/docs/vroute/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid route table",
		Detail:   "The route table could not be parsed. Check the JSON or YAML syntax.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid route declaration",
		Detail:   "A route must not set both path and paths, and a redirect needs a target.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid server setting",
		Detail:   "A server or history setting in the route table is out of range.",
		DocURL:   docBase + "E122",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		Detail:   "The command was called with arguments it cannot use.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Route table not found",
		Detail:   "No routes.json, routes.yaml or routes.yml was found. Pass --config or create one in the working directory.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
		DocURL:   docBase + "E142",
	},

	// ============================================
	// Remote Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryRemote,
		Message:  "Remote route table fetch failed",
		Detail:   "The route table could not be downloaded from object storage.",
		DocURL:   docBase + "E150",
	},

	// ============================================
	// Routing Errors (E200-E219)
	// ============================================

	"E201": {
		Category: CategoryRouting,
		Message:  "Invalid route pattern",
		Detail:   "The pattern has unbalanced or empty groups, a parameter without a name, or a repeated parameter name.",
		DocURL:   docBase + "E201",
	},
	"E202": {
		Category: CategoryRouting,
		Message:  "Missing path parameter",
		Detail:   "A required parameter of the pattern was not supplied when generating a path.",
		DocURL:   docBase + "E202",
	},
	"E203": {
		Category: CategoryRouting,
		Message:  "Path parameter does not match",
		Detail:   "A supplied value does not satisfy the parameter's constraint.",
		DocURL:   docBase + "E203",
	},
	"E204": {
		Category: CategoryRouting,
		Message:  "Redirect loop",
		Detail:   "Redirect routes keep sending the router to another redirect.",
		DocURL:   docBase + "E204",
	},
	"E205": {
		Category: CategoryRouting,
		Message:  "No route matches",
		Detail:   "None of the declared routes matches the pathname and the table has no pathless fallback.",
		DocURL:   docBase + "E205",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
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
