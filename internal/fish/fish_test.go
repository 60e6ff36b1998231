package fish

import (
	"math"
	"testing"

	"github.com/talgya/fishery/internal/entropy"
	"github.com/talgya/fishery/internal/world"
)

// testOcean is a minimal in-package Ocean backed by a real grid.
type testOcean struct {
	grid   *world.Grid
	rng    *entropy.Source
	params *Params
	at     map[*world.Patch][]*Fish
	moves  map[*Fish]int
	born   []*Fish
	dead   []*Fish
}

func newTestOcean(dim int, resource float64, params *Params) *testOcean {
	g := world.NewGrid(dim)
	for _, p := range g.Patches {
		p.Resource = resource
	}
	return &testOcean{
		grid:   g,
		rng:    entropy.NewSource(1),
		params: params,
		at:     make(map[*world.Patch][]*Fish),
		moves:  make(map[*Fish]int),
	}
}

func (o *testOcean) put(f *Fish) *Fish {
	o.at[f.Patch] = append(o.at[f.Patch], f)
	return f
}

func (o *testOcean) remove(f *Fish) {
	list := o.at[f.Patch]
	for i, x := range list {
		if x == f {
			list[i] = list[len(list)-1]
			o.at[f.Patch] = list[:len(list)-1]
			return
		}
	}
}

func (o *testOcean) Rand() *entropy.Source { return o.rng }
func (o *testOcean) Dim() int              { return o.grid.Dim }

func (o *testOcean) Neighbors(p *world.Patch) []*world.Patch {
	ns := o.grid.Neighbors(p.Coord)
	o.rng.Shuffle(len(ns), func(i, j int) { ns[i], ns[j] = ns[j], ns[i] })
	return ns
}

func (o *testOcean) CountMature(p *world.Patch, sex Sex) int {
	n := 0
	for _, f := range o.at[p] {
		if f.Sex == sex && f.Mature(o.params) {
			n++
		}
	}
	return n
}

func (o *testOcean) MatureMaleRatio(p *world.Patch) float64 {
	males := o.CountMature(p, Male)
	all := males + o.CountMature(p, Female)
	if all == 0 {
		return 0
	}
	return float64(males) / float64(all)
}

func (o *testOcean) MoveFish(f *Fish, to *world.Patch) {
	o.remove(f)
	f.Patch = to
	o.put(f)
	o.moves[f]++
}

func (o *testOcean) AddFish(f *Fish) {
	o.put(f)
	o.born = append(o.born, f)
}

func (o *testOcean) RemoveDead(f *Fish) {
	o.remove(f)
	o.dead = append(o.dead, f)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from  Stage
		event Event
		want  Stage
	}{
		{StageJuvenile, EventMatured, StageAdult},
		{StageJuvenile, EventSeasonOpen, StageJuvenile},
		{StageAdult, EventSeasonOpen, StageSpawning},
		{StageAdult, EventConceived, StageAdult},
		{StageSpawning, EventConceived, StageAdult},
		{StageSpawning, EventSeasonClose, StageAdult},
		{StageSpawning, EventMatured, StageSpawning},
		{StageAdult, EventDied, StageDead},
		{StageDead, EventSeasonOpen, StageDead},
		{StageDead, EventMatured, StageDead},
	}
	for _, tc := range cases {
		if got := Transition(tc.from, tc.event); got != tc.want {
			t.Errorf("Transition(%v, %d) = %v, want %v", tc.from, tc.event, got, tc.want)
		}
	}
}

func TestFertilityLatchesForFemalesOnly(t *testing.T) {
	p := DefaultParams()
	o := newTestOcean(5, 1.0, &p)
	female := o.put(Stocked(o.grid.Patches[0], Female, p.MatureAge-1, &p))
	male := o.put(Stocked(o.grid.Patches[0], Male, p.MatureAge-1, &p))
	if female.Fertile() || male.Fertile() {
		t.Fatal("juveniles must not be fertile")
	}
	female.Step(o, &p, -1)
	male.Step(o, &p, -1)
	if !female.Fertile() {
		t.Fatal("female should be fertile at maturity")
	}
	if male.Fertile() {
		t.Fatal("males are never fertile")
	}
	if male.Stage != StageAdult {
		t.Fatalf("male stage = %v, want adult", male.Stage)
	}
}

func TestGrowthMonotonicAndSaturating(t *testing.T) {
	p := DefaultParams()
	o := newTestOcean(3, 1.0, &p)
	f := o.put(Newborn(o.grid.Patches[0], Male, &p))
	prev := f.Size
	for day := 0; day < p.Longevity; day++ {
		f.Health = 1 + p.MetabolicCost
		f.grow(&p)
		f.Age++
		if f.Size < prev {
			t.Fatalf("size decreased at age %d: %v < %v", f.Age, f.Size, prev)
		}
		prev = f.Size
	}
	if math.Abs(f.Size-p.MatureSize) > 1e-6 {
		t.Fatalf("size at longevity = %v, want ~%v", f.Size, p.MatureSize)
	}
}

func TestGrowthChargesRelativeIncrease(t *testing.T) {
	p := DefaultParams()
	f := &Fish{Age: 10, Size: p.SizeAt(9), Health: 1}
	old := f.Size
	f.grow(&p)
	want := 1 - 2*(f.Size-old)/(f.Size+old)
	if math.Abs(f.Health-want) > 1e-12 {
		t.Fatalf("health = %v, want %v", f.Health, want)
	}
}

func TestOldFishDies(t *testing.T) {
	p := DefaultParams()
	o := newTestOcean(5, 1.0, &p)
	f := o.put(Stocked(o.grid.Patches[3], Female, p.Longevity+1, &p))
	if f.Step(o, &p, -1) {
		t.Fatal("fish past longevity should die")
	}
	if f.Stage != StageDead || len(o.dead) != 1 {
		t.Fatalf("stage=%v dead=%d", f.Stage, len(o.dead))
	}
	if len(o.at[o.grid.Patches[3]]) != 0 {
		t.Fatal("dead fish must leave the index")
	}
	if f.Step(o, &p, -1) {
		t.Fatal("dead fish must stay dead")
	}
}

func TestStarvedFishDies(t *testing.T) {
	p := DefaultParams()
	o := newTestOcean(5, 0, &p)
	f := o.put(Stocked(o.grid.Patches[0], Male, 400, &p))
	f.Health = p.DeathHealth / 2
	if f.Step(o, &p, -1) {
		t.Fatal("fish below the death floor on an empty ocean should die")
	}
	if len(o.dead) != 1 {
		t.Fatalf("dead = %d, want 1", len(o.dead))
	}
}

func TestForagingRestoresHealth(t *testing.T) {
	p := DefaultParams()
	o := newTestOcean(5, 1.0, &p)
	patch := o.grid.Patches[12]
	f := o.put(Stocked(patch, Female, 500, &p))
	f.Health = 0.5
	before := patch.Resource
	if !f.Step(o, &p, -1) {
		t.Fatal("fed fish should survive")
	}
	if f.Health < 1 {
		t.Fatalf("health = %v, want >= 1", f.Health)
	}
	if patch.Resource >= before {
		t.Fatal("eating should deplete the patch")
	}
	if f.Patch != patch {
		t.Fatal("fish with food at hand should not move")
	}
}

func TestForagingTerminatesOnBarrenOcean(t *testing.T) {
	p := DefaultParams()
	p.DeathHealth = -100
	o := newTestOcean(5, 0, &p)
	f := o.put(Stocked(o.grid.Patches[0], Female, 500, &p))
	f.Health = 0.2
	f.Step(o, &p, -1)
	if f.Moves != MovesBlocked {
		t.Fatalf("moves = %d, want blocked", f.Moves)
	}
}

func TestMoveBudgetRespected(t *testing.T) {
	p := DefaultParams()
	p.DeathHealth = -1000
	p.MoveCost = 0
	p.NeighborDiscount = 0
	o := newTestOcean(9, 0, &p)
	// A trail of food pulls a starving fish outward every move.
	for _, c := range o.grid.Patches {
		if c.Coord.Y == 0 {
			c.Resource = 1e-6
		}
	}
	f := o.put(Stocked(o.grid.At(world.Coord{X: 0, Y: 1}), Male, 600, &p))
	for tick := 0; tick < 20; tick++ {
		f.Health = -50
		o.moves[f] = 0
		f.Step(o, &p, -1)
		quota := p.MoveQuota(o.Dim(), f.Size)
		if o.moves[f] > quota {
			t.Fatalf("tick %d: %d moves exceed quota %d", tick, o.moves[f], quota)
		}
	}
}

func TestScaledMoveQuota(t *testing.T) {
	p := DefaultParams()
	p.MoveQuotaScale = 0.1
	if q := p.MoveQuota(50, 1.0); q != 5 {
		t.Fatalf("quota = %d, want 5", q)
	}
	if q := p.MoveQuota(50, 0.001); q != 1 {
		t.Fatalf("tiny fish quota = %d, want 1", q)
	}
}

func TestSpawningClosure(t *testing.T) {
	p := DefaultParams()
	p.MaleFactor = 100 // conception is certain with any male present
	o := newTestOcean(5, 1.0, &p)
	patch := o.grid.Patches[6]
	female := o.put(Stocked(patch, Female, 800, &p))
	for i := 0; i < 3; i++ {
		o.put(Stocked(patch, Male, 800, &p))
	}

	female.Step(o, &p, 0)
	if len(o.born) != p.Brood {
		t.Fatalf("born = %d, want %d", len(o.born), p.Brood)
	}
	if female.Spawning() {
		t.Fatal("spawning must switch off after conception")
	}
	if !female.Fertile() {
		t.Fatal("fertility is permanent")
	}

	for day := 1; day <= p.SpawnSeason; day++ {
		female.Health = 1
		female.Step(o, &p, day)
	}
	if len(o.born) != p.Brood {
		t.Fatalf("conceived again within the season: born = %d", len(o.born))
	}

	female.Step(o, &p, -1)
	female.Health = 1
	female.Step(o, &p, 0)
	if len(o.born) <= p.Brood {
		t.Fatal("should conceive again next season")
	}
}

func TestNewbornsJoinMotherPatch(t *testing.T) {
	p := DefaultParams()
	p.MaleFactor = 100
	p.Brood = 3
	o := newTestOcean(5, 1.0, &p)
	patch := o.grid.Patches[7]
	female := o.put(Stocked(patch, Female, 900, &p))
	o.put(Stocked(patch, Male, 900, &p))
	female.Step(o, &p, 0)
	if len(o.born) != 3 {
		t.Fatalf("born = %d, want 3", len(o.born))
	}
	for _, b := range o.born {
		if b.Patch != female.Patch || b.Size != p.FrySize || b.Stage != StageJuvenile {
			t.Fatalf("unexpected newborn %+v", b)
		}
	}
}

func TestConceptionProbabilityModels(t *testing.T) {
	p := DefaultParams()
	if got := p.ConceptionProbability(0, 0); got != 0 {
		t.Fatalf("no males: p = %v", got)
	}
	if got, want := p.ConceptionProbability(10, 0.5), 1-math.Exp(-0.5); math.Abs(got-want) > 1e-12 {
		t.Fatalf("male count model: p = %v, want %v", got, want)
	}

	p.SpawnModel = SpawnMaleRatio
	if got := p.ConceptionProbability(5, 0); got != 0 {
		t.Fatalf("zero ratio: p = %v", got)
	}
	daily := p.ConceptionProbability(5, 0.5)
	season := 1 - math.Pow(1-daily, float64(p.SeasonDays()))
	if math.Abs(season-p.SeasonConception) > 1e-9 {
		t.Fatalf("season-long conception = %v, want %v", season, p.SeasonConception)
	}
	if p.ConceptionProbability(5, 0.9) != daily {
		t.Fatal("probability should saturate above the saturation ratio")
	}
	if p.ConceptionProbability(5, 0.25) >= daily {
		t.Fatal("lower male ratio should lower conception")
	}
}

func TestMateSeekingMovesTowardMates(t *testing.T) {
	p := DefaultParams()
	o := newTestOcean(7, 1.0, &p)
	home := o.grid.At(world.Coord{X: 3, Y: 3})
	mates := o.grid.At(world.Coord{X: 4, Y: 3})
	male := o.put(Stocked(home, Male, 800, &p))
	for i := 0; i < 4; i++ {
		o.put(Stocked(mates, Female, 800, &p))
	}
	male.Health = 1 + p.MetabolicCost
	male.Step(o, &p, 0)
	if male.Patch != mates {
		t.Fatalf("male at %v, want %v", male.Patch.Coord, mates.Coord)
	}
}

func TestGrowthPausesAtMaturity(t *testing.T) {
	p := DefaultParams()
	cases := []struct {
		name   string
		age    int
		health float64
		grows  bool
	}{
		{"hungry juvenile", p.MatureAge - 1, 0.5, true},
		{"maturity day", p.MatureAge, 1, false},
		{"fed adult", p.MatureAge + 1, 1, true},
		{"underfed adult", p.MatureAge + 1, 0.5, false},
	}
	for _, tc := range cases {
		f := &Fish{Age: tc.age, Size: p.SizeAt(tc.age - 1), Health: tc.health}
		old := f.Size
		f.grow(&p)
		if grew := f.Size > old; grew != tc.grows {
			t.Errorf("%s: size %v -> %v, grows = %v, want %v", tc.name, old, f.Size, grew, tc.grows)
		}
	}
}

func TestSeasonCloseEndsSpawning(t *testing.T) {
	p := DefaultParams()
	o := newTestOcean(5, 1.0, &p)
	female := o.put(Stocked(o.grid.Patches[12], Female, 800, &p))

	female.Health = 1
	female.Step(o, &p, 0)
	if !female.Spawning() {
		t.Fatal("season open should start spawning")
	}
	female.Health = 1
	female.Step(o, &p, p.SpawnSeason)
	if !female.Spawning() {
		t.Fatal("spawning should last through the last season day")
	}
	female.Health = 1
	female.Step(o, &p, -1)
	if female.Spawning() {
		t.Fatal("spawning should stop off-season")
	}
	if !female.Fertile() {
		t.Fatal("fertility is permanent")
	}

	female.Health = 1
	female.Step(o, &p, 0)
	female.Health = 1
	female.Step(o, &p, p.SpawnSeason+1)
	if female.Spawning() {
		t.Fatal("spawning should stop once the counter passes the season length")
	}
	if len(o.born) != 0 {
		t.Fatalf("conceived without males: born = %d", len(o.born))
	}
}

func TestFoodScoreDiscountsNeighbors(t *testing.T) {
	cases := []struct {
		name     string
		current  float64
		neighbor float64
		moves    bool
	}{
		{"gap above discount", 0.5, 0.6, true},
		{"gap below discount", 0.5, 0.53, false},
		{"empty patch, small neighbor", 0, 0.04, false},
		{"empty patch, rich neighbor", 0, 0.2, true},
		{"rich patch, gap below discount", 10, 10.04, false},
		{"rich patch, gap above discount", 10, 10.2, true},
	}
	for _, tc := range cases {
		p := DefaultParams()
		o := newTestOcean(5, 0, &p)
		home := o.grid.At(world.Coord{X: 2, Y: 2})
		food := o.grid.At(world.Coord{X: 3, Y: 2})
		home.Resource = tc.current
		food.Resource = tc.neighbor
		f := o.put(Stocked(home, Male, 800, &p))
		f.Health = 0

		f.moveOnce(o, &p)
		switch {
		case tc.moves && f.Patch != food:
			t.Errorf("%s: fish at %v, want %v", tc.name, f.Patch.Coord, food.Coord)
		case tc.moves && f.Moves != 1:
			t.Errorf("%s: moves = %d, want 1", tc.name, f.Moves)
		case !tc.moves && f.Patch != home:
			t.Errorf("%s: fish moved to %v", tc.name, f.Patch.Coord)
		case !tc.moves && f.Moves != MovesBlocked:
			t.Errorf("%s: moves = %d, want blocked", tc.name, f.Moves)
		}
	}
}

func TestSpawningWithoutMatesWandersRandomly(t *testing.T) {
	p := DefaultParams()
	ends := make(map[world.Coord]bool)
	for seed := int64(1); seed <= 20; seed++ {
		o := newTestOcean(9, 1.0, &p)
		o.rng = entropy.NewSource(seed)
		home := o.grid.At(world.Coord{X: 4, Y: 4})
		f := o.put(Stocked(home, Female, 800, &p))
		f.Health = 1 + p.MetabolicCost

		if !f.Step(o, &p, 0) {
			t.Fatalf("seed %d: fish died", seed)
		}
		if quota := p.MoveQuota(o.Dim(), f.Size); o.moves[f] > quota {
			t.Fatalf("seed %d: %d moves exceed quota %d", seed, o.moves[f], quota)
		}
		ends[f.Patch.Coord] = true
	}
	if len(ends) < 2 {
		t.Fatalf("lone spawner ended on the same patch for every seed: %v", ends)
	}
}
