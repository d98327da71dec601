package system

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/kraken-build/kraken/pkg/address"
)

// Project is a node in the build tree. It owns tasks and subprojects, which
// share one name namespace, and carries the standard lifecycle groups that
// tasks attach to.
type Project struct {
	name      string
	addr      address.Address
	parent    *Project
	directory string
	logger    *slog.Logger

	tasks       map[string]Task
	subprojects map[string]*Project
	order       []string
}

// ProjectOption configures a new project tree.
type ProjectOption func(*Project)

// WithLogger sets the base logger the tree derives task loggers from.
func WithLogger(logger *slog.Logger) ProjectOption {
	return func(p *Project) { p.logger = logger }
}

// WithDirectory sets the filesystem directory the root project maps to.
func WithDirectory(dir string) ProjectOption {
	return func(p *Project) { p.directory = dir }
}

// NewRootProject creates the root of a build tree with the standard lifecycle
// groups installed.
func NewRootProject(opts ...ProjectOption) *Project {
	p := &Project{
		addr:        address.Root,
		logger:      slog.Default(),
		tasks:       make(map[string]Task),
		subprojects: make(map[string]*Project),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.installDefaultGroups()
	return p
}

func (p *Project) Name() string             { return p.name }
func (p *Project) Address() address.Address { return p.addr }
func (p *Project) Parent() *Project         { return p.parent }
func (p *Project) Directory() string        { return p.directory }
func (p *Project) Logger() *slog.Logger     { return p.logger }

// Root walks up to the tree root.
func (p *Project) Root() *Project {
	cur := p
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// IsRoot reports whether the project is the tree root.
func (p *Project) IsRoot() bool { return p.parent == nil }

// Subproject creates a child project, installing the standard lifecycle
// groups. The name must be free in the project's namespace.
func (p *Project) Subproject(name string) (*Project, error) {
	if err := p.claimName(name); err != nil {
		return nil, err
	}
	child := &Project{
		name:        name,
		addr:        p.addr.Append(name),
		parent:      p,
		logger:      p.logger,
		tasks:       make(map[string]Task),
		subprojects: make(map[string]*Project),
	}
	if p.directory != "" {
		child.directory = p.directory + "/" + name
	}
	p.subprojects[name] = child
	p.order = append(p.order, name)
	child.installDefaultGroups()
	return child, nil
}

// SubprojectWithDirectory creates a child project mapped to an explicit
// directory.
func (p *Project) SubprojectWithDirectory(name, dir string) (*Project, error) {
	child, err := p.Subproject(name)
	if err != nil {
		return nil, err
	}
	child.directory = dir
	return child, nil
}

// AddTask registers a task under the given name and binds it to the project.
func (p *Project) AddTask(name string, task Task) error {
	if err := p.claimName(name); err != nil {
		return err
	}
	task.Spec().bind(name, p)
	p.tasks[name] = task
	p.order = append(p.order, name)
	return nil
}

func (p *Project) claimName(name string) error {
	if name == "" {
		return fmt.Errorf("project %q: member name must not be empty", p.addr)
	}
	if _, err := address.Parse(name); err != nil {
		return fmt.Errorf("project %q: invalid member name %q: %w", p.addr, name, err)
	}
	if _, ok := p.tasks[name]; ok {
		return &MemberExistsError{Project: p.addr, Name: name}
	}
	if _, ok := p.subprojects[name]; ok {
		return &MemberExistsError{Project: p.addr, Name: name}
	}
	return nil
}

// Task looks up a task by name in this project only.
func (p *Project) Task(name string) (Task, bool) {
	task, ok := p.tasks[name]
	return task, ok
}

// Tasks returns the project's tasks in registration order.
func (p *Project) Tasks() []Task {
	out := make([]Task, 0, len(p.tasks))
	for _, name := range p.order {
		if task, ok := p.tasks[name]; ok {
			out = append(out, task)
		}
	}
	return out
}

// SubprojectByName looks up a direct child project.
func (p *Project) SubprojectByName(name string) (*Project, bool) {
	child, ok := p.subprojects[name]
	return child, ok
}

// Subprojects returns the direct children in registration order.
func (p *Project) Subprojects() []*Project {
	out := make([]*Project, 0, len(p.subprojects))
	for _, name := range p.order {
		if child, ok := p.subprojects[name]; ok {
			out = append(out, child)
		}
	}
	return out
}

// Walk visits this project and all descendants depth-first.
func (p *Project) Walk(fn func(*Project)) {
	fn(p)
	for _, child := range p.Subprojects() {
		child.Walk(fn)
	}
}

// FindProject resolves an absolute address to a project in this tree.
func (p *Project) FindProject(addr address.Address) (*Project, error) {
	if !addr.IsAbsolute() {
		return nil, fmt.Errorf("project address must be absolute, got %q", addr)
	}
	cur := p.Root()
	for _, elem := range addr.Elements() {
		next, ok := cur.subprojects[elem]
		if !ok {
			return nil, &ProjectNotFoundError{Address: addr}
		}
		cur = next
	}
	return cur, nil
}

// FindTask resolves an absolute address to a task in this tree.
func (p *Project) FindTask(addr address.Address) (Task, error) {
	if !addr.IsAbsolute() || addr.Len() == 0 {
		return nil, fmt.Errorf("task address must be absolute and non-empty, got %q", addr)
	}
	parent, err := p.FindProject(addr.Parent())
	if err != nil {
		return nil, err
	}
	task, ok := parent.tasks[addr.Name()]
	if !ok {
		return nil, &TaskNotFoundError{Selector: addr.String()}
	}
	return task, nil
}

// Group returns the named group task, creating it when absent.
func (p *Project) Group(name string) *GroupTask {
	if task, ok := p.tasks[name]; ok {
		if group, ok := task.(*GroupTask); ok {
			return group
		}
		panic(fmt.Sprintf("member %q of project %q is not a group", name, p.addr))
	}
	group := &GroupTask{}
	if err := p.AddTask(name, group); err != nil {
		panic(err) // claimName already checked above
	}
	return group
}

// Finalize freezes input properties of all tasks in the subtree.
func (p *Project) Finalize() {
	p.Walk(func(proj *Project) {
		for _, task := range proj.Tasks() {
			task.Spec().Finalize()
		}
	})
}

// defaultGroup describes one standard lifecycle group.
type defaultGroup struct {
	name       string
	desc       string
	isDefault  bool
	dependsOn  []string
	orderAfter []string
}

// The standard lifecycle every project carries. Running a project without an
// explicit selection runs the groups marked default.
var defaultGroups = []defaultGroup{
	{name: "apply", desc: "Apply formatting and automated fixes."},
	{name: "fmt", desc: "Format source files.", dependsOn: []string{"apply"}},
	{name: "check", desc: "Run fast sanity checks.", isDefault: true},
	{name: "gen", desc: "Generate source files.", isDefault: true},
	{name: "lint", desc: "Run linters.", isDefault: true, dependsOn: []string{"check", "gen"}},
	{name: "build", desc: "Build artifacts.", dependsOn: []string{"gen"}, orderAfter: []string{"lint"}},
	{name: "audit", desc: "Audit dependencies and artifacts.", dependsOn: []string{"build", "gen"}},
	{name: "test", desc: "Run tests.", isDefault: true, dependsOn: []string{"gen"}, orderAfter: []string{"build"}},
	{name: "integrationTest", desc: "Run integration tests.", dependsOn: []string{"gen"}, orderAfter: []string{"test"}},
	{name: "publish", desc: "Publish artifacts.", dependsOn: []string{"build"}, orderAfter: []string{"integrationTest"}},
	{name: "deploy", desc: "Deploy published artifacts.", orderAfter: []string{"publish"}},
	{name: "update", desc: "Update dependency lockfiles."},
}

func (p *Project) installDefaultGroups() {
	groups := make(map[string]*GroupTask, len(defaultGroups))
	for _, dg := range defaultGroups {
		group := p.Group(dg.name)
		group.Description = dg.desc
		group.Default = dg.isDefault
		groups[dg.name] = group
	}
	for _, dg := range defaultGroups {
		group := groups[dg.name]
		for _, dep := range dg.dependsOn {
			group.DependsOn(groups[dep])
		}
		for _, dep := range dg.orderAfter {
			group.DependsOnOrderOnly(groups[dep])
		}
	}
}

// DefaultTasks returns the tasks of this project marked as default, sorted by
// name for stable resolution output.
func (p *Project) DefaultTasks() []Task {
	var out []Task
	for _, task := range p.Tasks() {
		if task.Spec().Default {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Spec().Name() < out[j].Spec().Name()
	})
	return out
}
