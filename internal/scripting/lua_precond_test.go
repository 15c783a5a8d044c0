package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/mverrilli/deckbound/internal/scripting"
)

// repoRoot walks up from the test's working directory to find the module root.
func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root
		}
		parent := filepath.Dir(root)
		if parent == root {
			t.Fatalf("could not find repo root from %s", wd)
		}
		root = parent
	}
}

// loadSpecials loads the shipped special-attack scripts into the __global__ VM.
func loadSpecials(t *testing.T, mgr *scripting.Manager) {
	t.Helper()
	dir := filepath.Join(repoRoot(t), "content", "scripts", "specials")
	require.NoError(t, mgr.LoadGlobal(dir, 0))
}

// effectCall records one ApplyEffect invocation.
type effectCall struct {
	sessionID, targetUID, name, kind string
	duration, magnitude              int
	stat                             string
}

// wireRecorder attaches recording callbacks for every engine.* function.
func wireRecorder(mgr *scripting.Manager) (*[]effectCall, *[]string, *[]string, *[]string) {
	effects := &[]effectCall{}
	spawns := &[]string{}
	removals := &[]string{}
	broadcasts := &[]string{}
	mgr.ApplyEffect = func(sessionID, targetUID, name, kind string, duration, magnitude int, stat string) error {
		*effects = append(*effects, effectCall{sessionID, targetUID, name, kind, duration, magnitude, stat})
		return nil
	}
	mgr.SpawnCard = func(sessionID, templateID string) error {
		*spawns = append(*spawns, templateID)
		return nil
	}
	mgr.RemoveSelf = func(sessionID, cardID string) error {
		*removals = append(*removals, cardID)
		return nil
	}
	mgr.BroadcastLog = func(sessionID, msg string) {
		*broadcasts = append(*broadcasts, msg)
	}
	mgr.GetCombatant = func(sessionID, uid string) *scripting.CombatantInfo {
		if uid == "p1" {
			return &scripting.CombatantInfo{UID: uid, Name: "Alice", Health: 20, MaxHealth: 20}
		}
		return nil
	}
	return effects, spawns, removals, broadcasts
}

func TestSpecials_VenomSpit_AppliesPeriodicDamage(t *testing.T) {
	mgr, _ := newTestManager(t)
	loadSpecials(t, mgr)
	effects, _, _, broadcasts := wireRecorder(mgr)

	ret, err := mgr.CallHook("__global__", "venom_spit",
		lua.LString("s1"), lua.LString("card-1"), lua.LString("p1"))
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)

	require.Len(t, *effects, 1)
	call := (*effects)[0]
	assert.Equal(t, "p1", call.targetUID)
	assert.Equal(t, "venom", call.name)
	assert.Equal(t, "periodic_damage", call.kind)
	assert.Equal(t, 3, call.duration)
	assert.Equal(t, 2, call.magnitude)
	assert.Len(t, *broadcasts, 1)
}

func TestSpecials_RallyingHowl_SpawnsWolf(t *testing.T) {
	mgr, _ := newTestManager(t)
	loadSpecials(t, mgr)
	_, spawns, _, _ := wireRecorder(mgr)

	ret, err := mgr.CallHook("__global__", "rallying_howl",
		lua.LString("s1"), lua.LString("card-1"), lua.LString("p1"))
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)
	assert.Equal(t, []string{"mire-wolf"}, *spawns)
}

func TestSpecials_StunningSlam_StunsTarget(t *testing.T) {
	mgr, _ := newTestManager(t)
	loadSpecials(t, mgr)
	effects, _, _, broadcasts := wireRecorder(mgr)

	ret, err := mgr.CallHook("__global__", "stunning_slam",
		lua.LString("s1"), lua.LString("card-1"), lua.LString("p1"))
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)

	require.Len(t, *effects, 1)
	assert.Equal(t, "stun", (*effects)[0].kind)
	require.Len(t, *broadcasts, 1)
	assert.Contains(t, (*broadcasts)[0], "Alice")
}

func TestSpecials_StunningSlam_UnknownTarget_ReturnsFalse(t *testing.T) {
	mgr, _ := newTestManager(t)
	loadSpecials(t, mgr)
	effects, _, _, _ := wireRecorder(mgr)

	ret, err := mgr.CallHook("__global__", "stunning_slam",
		lua.LString("s1"), lua.LString("card-1"), lua.LString("nobody"))
	require.NoError(t, err)
	assert.Equal(t, lua.LFalse, ret)
	assert.Empty(t, *effects)
}

func TestSpecials_DeathBurst_BurnsAndRemovesSelf(t *testing.T) {
	mgr, _ := newTestManager(t)
	loadSpecials(t, mgr)
	effects, _, removals, _ := wireRecorder(mgr)

	ret, err := mgr.CallHook("__global__", "death_burst",
		lua.LString("s1"), lua.LString("card-1"), lua.LString("p1"))
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)

	require.Len(t, *effects, 1)
	call := (*effects)[0]
	assert.Equal(t, "burning", call.name)
	assert.Equal(t, "periodic_damage", call.kind)
	assert.GreaterOrEqual(t, call.magnitude, 1)
	assert.LessOrEqual(t, call.magnitude, 6)
	assert.Equal(t, []string{"card-1"}, *removals)
}
