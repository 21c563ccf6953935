package build

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageDiscoverDocs  StageName = "discover_docs"
	StageResolveNav    StageName = "resolve_nav"
	StageRenderPages   StageName = "render_pages"
	StagePostRender    StageName = "post_render"
	StageWritePages    StageName = "write_pages"
	StageCopyAssets    StageName = "copy_assets"
	StageSitemap       StageName = "sitemap"
	StagePostBuild     StageName = "post_build"
	StageCheckLinks    StageName = "check_links"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 10)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns a copy of the stage definitions.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// Names lists the stage names in order.
func (p *Pipeline) Names() []StageName {
	out := make([]StageName, len(p.Defs))
	for i, d := range p.Defs {
		out[i] = d.Name
	}
	return out
}
