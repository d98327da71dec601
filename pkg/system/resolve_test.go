package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/system"
)

// resolveFixture builds a small tree:
//
//	:               (root, default groups)
//	:compileRoot    custom task
//	:lib            subproject
//	:lib:compile    custom task
//	:lib:deep       subproject
//	:lib:deep:compile
func resolveFixture(t *testing.T) (*system.Project, *system.Project) {
	t.Helper()
	root := system.NewRootProject()
	newCompileTask(t, root, "compileRoot")
	lib, err := root.Subproject("lib")
	require.NoError(t, err)
	newCompileTask(t, lib, "compile")
	deep, err := lib.Subproject("deep")
	require.NoError(t, err)
	newCompileTask(t, deep, "compile")
	return root, lib
}

func addresses(set *system.TaskSet) []string {
	var out []string
	for _, task := range set.Tasks() {
		out = append(out, task.Spec().Address().String())
	}
	return out
}

func TestResolveAbsoluteLiteral(t *testing.T) {
	root, _ := resolveFixture(t)
	set, err := system.ResolveTasks(root, root, []string{":lib:compile"})
	require.NoError(t, err)
	assert.Equal(t, []string{":lib:compile"}, addresses(set))
}

func TestResolveBareNameMatchesEveryDepth(t *testing.T) {
	root, _ := resolveFixture(t)
	set, err := system.ResolveTasks(root, root, []string{"compile"})
	require.NoError(t, err)
	assert.Equal(t, []string{":lib:compile", ":lib:deep:compile"}, addresses(set))

	set, err = system.ResolveTasks(root, root, []string{"lint"})
	require.NoError(t, err)
	assert.Equal(t, []string{":lint", ":lib:lint", ":lib:deep:lint"}, addresses(set))
}

func TestResolveRelativeToCurrentProject(t *testing.T) {
	root, lib := resolveFixture(t)
	set, err := system.ResolveTasks(root, lib, []string{".:compile"})
	require.NoError(t, err)
	assert.Equal(t, []string{":lib:compile"}, addresses(set))

	set, err = system.ResolveTasks(root, lib, []string{"..:compileRoot"})
	require.NoError(t, err)
	assert.Equal(t, []string{":compileRoot"}, addresses(set))
}

func TestResolveDotSelectsCurrentDefaults(t *testing.T) {
	root, lib := resolveFixture(t)
	set, err := system.ResolveTasks(root, lib, []string{"."})
	require.NoError(t, err)
	assert.Equal(t, []string{":lib:check", ":lib:gen", ":lib:lint", ":lib:test"}, addresses(set))
}

func TestResolveContainerSelectsProjectDefaults(t *testing.T) {
	root, _ := resolveFixture(t)
	set, err := system.ResolveTasks(root, root, []string{"lib:"})
	require.NoError(t, err)
	assert.Equal(t, []string{":lib:check", ":lib:gen", ":lib:lint", ":lib:test"}, addresses(set))
}

func TestResolveDescendantContainerExcludesCurrent(t *testing.T) {
	root, _ := resolveFixture(t)
	set, err := system.ResolveTasks(root, root, []string{":**:"})
	require.NoError(t, err)
	for _, addr := range addresses(set) {
		assert.NotRegexp(t, `^:[a-zA-Z]+$`, addr, "root defaults must not be included")
	}
	assert.Contains(t, addresses(set), ":lib:lint")
	assert.Contains(t, addresses(set), ":lib:deep:lint")
}

func TestResolveNoSelectorsUsesSubtreeDefaults(t *testing.T) {
	root, lib := resolveFixture(t)
	set, err := system.ResolveTasks(root, lib, nil)
	require.NoError(t, err)
	assert.Contains(t, addresses(set), ":lib:lint")
	assert.Contains(t, addresses(set), ":lib:deep:lint")
	assert.NotContains(t, addresses(set), ":lint")
	assert.Equal(t, []string{"."}, set.Selectors())
}

func TestResolveBareNameScopedToFocus(t *testing.T) {
	root, lib := resolveFixture(t)

	set, err := system.ResolveTasks(root, lib, []string{"compile"})
	require.NoError(t, err)
	assert.Equal(t, []string{":lib:compile", ":lib:deep:compile"}, addresses(set))

	// compileRoot exists only outside the focus subtree, so the bare name
	// does not reach it.
	_, err = system.ResolveTasks(root, lib, []string{"compileRoot"})
	var notFound *system.TaskNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "compileRoot", notFound.Selector)
}

func TestResolveLiteralMissIsError(t *testing.T) {
	root, _ := resolveFixture(t)
	_, err := system.ResolveTasks(root, root, []string{"noSuchThing"})
	var notFound *system.TaskNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "noSuchThing", notFound.Selector)
}

func TestResolveGlobMissIsEmpty(t *testing.T) {
	root, _ := resolveFixture(t)
	set, err := system.ResolveTasks(root, root, []string{"noSuch*"})
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestResolveGlobMatchesTasks(t *testing.T) {
	root, _ := resolveFixture(t)
	set, err := system.ResolveTasks(root, root, []string{":lib:**:comp*"})
	require.NoError(t, err)
	assert.Equal(t, []string{":lib:compile", ":lib:deep:compile"}, addresses(set))
}

func TestResolveDeduplicatesAcrossSelectors(t *testing.T) {
	root, _ := resolveFixture(t)
	set, err := system.ResolveTasks(root, root, []string{"compile", ":lib:compile"})
	require.NoError(t, err)
	assert.Equal(t, []string{":lib:compile", ":lib:deep:compile"}, addresses(set))
	assert.Len(t, set.Partition("compile"), 2)
	assert.Len(t, set.Partition(":lib:compile"), 1)
	assert.Equal(t, []string{"compile", ":lib:compile"}, set.Selectors())
}

func TestResolveIsIdempotent(t *testing.T) {
	root, _ := resolveFixture(t)
	first, err := system.ResolveTasks(root, root, []string{"compile"})
	require.NoError(t, err)
	second, err := system.ResolveTasks(root, root, []string{"compile"})
	require.NoError(t, err)
	assert.Equal(t, addresses(first), addresses(second))
}
