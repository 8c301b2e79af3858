package content

type Kind string

const (
	KindServices    Kind = "services"
	KindProjects    Kind = "projects"
	KindBlog        Kind = "blog"
	KindCaseStudies Kind = "case-studies"
	KindPages       Kind = "pages"
	KindNavigation  Kind = "navigation"
	KindHero        Kind = "hero"
)

// Route names a URL segment and the kind it serves. "capabilities" is the
// older name for services and shares its records.
type Route struct {
	Segment string
	Kind    Kind
}

var routes = []Route{
	{Segment: "services", Kind: KindServices},
	{Segment: "capabilities", Kind: KindServices},
	{Segment: "projects", Kind: KindProjects},
	{Segment: "blog", Kind: KindBlog},
	{Segment: "case-studies", Kind: KindCaseStudies},
	{Segment: "pages", Kind: KindPages},
	{Segment: "navigation", Kind: KindNavigation},
	{Segment: "hero", Kind: KindHero},
}

// Routes returns the URL segments in dispatch order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

func Kinds() []Kind {
	return []Kind{KindServices, KindProjects, KindBlog, KindCaseStudies, KindPages, KindNavigation, KindHero}
}

func ParseKind(s string) (Kind, bool) {
	for _, r := range routes {
		if r.Segment == s {
			return r.Kind, true
		}
	}
	return "", false
}

// Segments lists every URL segment that serves k.
func Segments(k Kind) []string {
	var out []string
	for _, r := range routes {
		if r.Kind == k {
			out = append(out, r.Segment)
		}
	}
	return out
}

var schemas = map[Kind]Schema{
	KindServices: {
		Kind:     KindServices,
		Label:    "Service",
		SlugFrom: "title",
		Fields: []Field{
			{Name: "title", Type: TypeString, Rules: "required,min=1,max=200"},
			{Name: "summary", Type: TypeString, Rules: "max=500"},
			{Name: "description", Type: TypeText, Rules: "max=20000"},
			{Name: "icon", Type: TypeString, Rules: "max=120"},
			{Name: "features", Type: TypeStringList, Rules: "max=50"},
			{Name: "coverImage", Type: TypeString, Rules: "max=2048"},
		},
	},
	KindProjects: {
		Kind:     KindProjects,
		Label:    "Project",
		SlugFrom: "title",
		Fields: []Field{
			{Name: "title", Type: TypeString, Rules: "required,min=1,max=200"},
			{Name: "summary", Type: TypeString, Rules: "max=500"},
			{Name: "description", Type: TypeText, Rules: "max=20000"},
			{Name: "client", Type: TypeString, Rules: "max=200"},
			{Name: "year", Type: TypeInt, Rules: "min=1900,max=2100"},
			{Name: "tags", Type: TypeStringList, Rules: "max=30"},
			{Name: "coverImage", Type: TypeString, Rules: "max=2048"},
			{Name: "link", Type: TypeString, Rules: "url,max=2048"},
			{Name: "featured", Type: TypeBool},
		},
	},
	KindBlog: {
		Kind:     KindBlog,
		Label:    "Blog post",
		SlugFrom: "title",
		Fields: []Field{
			{Name: "title", Type: TypeString, Rules: "required,min=1,max=200"},
			{Name: "excerpt", Type: TypeString, Rules: "max=1000"},
			{Name: "body", Type: TypeText, Rules: "max=200000"},
			{Name: "author", Type: TypeString, Rules: "max=120"},
			{Name: "tags", Type: TypeStringList, Rules: "max=30"},
			{Name: "coverImage", Type: TypeString, Rules: "max=2048"},
			{Name: "publishedAt", Type: TypeString, Rules: "datetime=2006-01-02T15:04:05Z07:00"},
		},
	},
	KindCaseStudies: {
		Kind:     KindCaseStudies,
		Label:    "Case study",
		SlugFrom: "title",
		Fields: []Field{
			{Name: "title", Type: TypeString, Rules: "required,min=1,max=200"},
			{Name: "client", Type: TypeString, Rules: "max=200"},
			{Name: "industry", Type: TypeString, Rules: "max=120"},
			{Name: "summary", Type: TypeString, Rules: "max=1000"},
			{Name: "challenge", Type: TypeText, Rules: "max=20000"},
			{Name: "solution", Type: TypeText, Rules: "max=20000"},
			{Name: "results", Type: TypeArray, Rules: "max=50"},
			{Name: "coverImage", Type: TypeString, Rules: "max=2048"},
		},
	},
	KindPages: {
		Kind:     KindPages,
		Label:    "Page",
		SlugFrom: "title",
		Fields: []Field{
			{Name: "title", Type: TypeString, Rules: "required,min=1,max=200"},
			{Name: "body", Type: TypeText, Rules: "max=200000"},
			{Name: "sections", Type: TypeArray, Rules: "max=100"},
			{Name: "seoTitle", Type: TypeString, Rules: "max=200"},
			{Name: "seoDescription", Type: TypeString, Rules: "max=500"},
		},
	},
	KindNavigation: {
		Kind:  KindNavigation,
		Label: "Navigation item",
		Fields: []Field{
			{Name: "label", Type: TypeString, Rules: "required,min=1,max=120"},
			{Name: "href", Type: TypeString, Rules: "required,min=1,max=2048"},
			{Name: "parentId", Type: TypeString, Rules: "uuid"},
			{Name: "external", Type: TypeBool},
		},
	},
	KindHero: {
		Kind:  KindHero,
		Label: "Hero section",
		Fields: []Field{
			{Name: "heading", Type: TypeString, Rules: "required,min=1,max=200"},
			{Name: "subheading", Type: TypeString, Rules: "max=500"},
			{Name: "page", Type: TypeString, Rules: "max=120"},
			{Name: "ctaLabel", Type: TypeString, Rules: "max=80"},
			{Name: "ctaHref", Type: TypeString, Rules: "max=2048"},
			{Name: "image", Type: TypeString, Rules: "max=2048"},
			{Name: "extra", Type: TypeObject},
		},
	},
}

func SchemaFor(k Kind) (Schema, bool) {
	s, ok := schemas[k]
	return s, ok
}
