package generator

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/katalvlaran/melodia/contour"
	"github.com/katalvlaran/melodia/embellish"
	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/repair"
	"github.com/katalvlaran/melodia/rhythm"
	"github.com/katalvlaran/melodia/rng"
	"github.com/katalvlaran/melodia/rootgraph"
	"github.com/katalvlaran/melodia/score"
	"github.com/katalvlaran/melodia/skeleton"
	"github.com/katalvlaran/melodia/theory"
)

// ReasonEdited marks an attack pitched by an override.
const ReasonEdited = "edited"

// NoSolution reports why no variant found a legal anchor.
type NoSolution struct {
	Degrees     []int                 `json:"illegal_degrees"`
	Intervals   []int                 `json:"illegal_intervals"`
	Transitions []exercise.Transition `json:"illegal_transitions"`
	Phrase      int                   `json:"phrase"`
	Measure     int                   `json:"measure"`
	Beat        float64               `json:"beat"`
	Reason      string                `json:"reason"`
}

func (n *NoSolution) String() string {
	return fmt.Sprintf("no solution at measure %d beat %g: %s (illegal degrees %v, intervals %v, transitions %v)",
		n.Measure, n.Beat, n.Reason, n.Degrees, n.Intervals, n.Transitions)
}

// Result is the outcome of one Generate call.
type Result struct {
	Fingerprint string            `json:"fingerprint"`
	Seed        int64             `json:"seed"`
	Meter       theory.Meter      `json:"meter"`
	Variant     int               `json:"variant"`
	Events      []melody.Event    `json:"events"`
	Trace       []skeleton.Trace  `json:"trace"`
	Harmony     []harmony.Event   `json:"harmony"`
	Contours    []contour.Plan    `json:"contours"`
	Grids       []rhythm.Plan     `json:"grids"`
	Log         []repair.Entry    `json:"log"`
	Score       score.Breakdown   `json:"score"`
	Scores      []float64         `json:"variant_scores"`
	Overrides   map[uuid.UUID]int `json:"overrides,omitempty"`
	Infeasible  *NoSolution       `json:"infeasible,omitempty"`
}

// OK reports whether the result carries a melody.
func (r *Result) OK() bool { return r.Infeasible == nil }

// Attacks returns the attack events in order.
func (r *Result) Attacks() []melody.Event {
	out := make([]melody.Event, 0, len(r.Events))
	for _, e := range r.Events {
		if e.Attack {
			out = append(out, e)
		}
	}

	return out
}

// Generator runs the engine. It is safe for concurrent use.
type Generator struct {
	variants   int
	workers    int
	logger     *zap.Logger
	overrides  map[uuid.UUID]int
	weights    score.Weights
	graph      *rootgraph.Graph
	repairOpts []repair.Option
	repairIter int
}

// New returns a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		variants:   DefaultVariants,
		workers:    1,
		logger:     zap.NewNop(),
		weights:    score.DefaultWeights(),
		repairIter: repair.DefaultMaxIterations,
	}
	for _, o := range opts {
		o(g)
	}
	if g.graph == nil {
		g.graph = rootgraph.Diatonic()
	}

	return g
}

// With returns a copy of g with opts applied on top of its configuration.
func (g *Generator) With(opts ...Option) *Generator {
	c := *g
	c.repairOpts = append([]repair.Option(nil), g.repairOpts...)
	for _, o := range opts {
		o(&c)
	}

	return &c
}

// Variants returns the configured number of variants.
func (g *Generator) Variants() int { return g.variants }

// Fingerprint identifies the results g produces for spec. It hashes the spec
// fingerprint together with every setting that changes the chosen melody:
// the variant count, the scoring weights, the repair sweep cap and the root
// graph. Concurrency, logging and overrides do not take part.
func (g *Generator) Fingerprint(spec exercise.Spec) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|variants=%d|repair=%d|weights=%+v|graph=", spec.Fingerprint(), g.variants, g.repairIter, g.weights)
	for _, a := range g.graph.Vertices() {
		nbrs, _ := g.graph.NeighborIDs(a)
		for _, b := range nbrs {
			w, _ := g.graph.Weight(a, b)
			fmt.Fprintf(h, "%s-%s:%g;", a, b, w)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

type variant struct {
	res        *Result
	infeasible *NoSolution
	err        error
}

// Generate produces the best of the configured variants for spec and seed.
func (g *Generator) Generate(spec exercise.Spec, seed int64) (*Result, error) {
	// 1) Validate.
	r, err := spec.Resolve()
	if err != nil {
		return nil, err
	}
	fp := g.Fingerprint(spec)
	log := g.logger.With(zap.String("fingerprint", fp), zap.Int64("seed", seed))

	// 2) Run variants on a bounded pool.
	out := make([]variant, g.variants)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(g.workers, g.variants); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				out[v] = g.variant(r, seed, v, log.With(zap.Int("variant", v)))
			}
		}()
	}
	for v := 0; v < g.variants; v++ {
		jobs <- v
	}
	close(jobs)
	wg.Wait()

	// 3) Select.
	best := -1
	scores := make([]float64, g.variants)
	for v, o := range out {
		if o.err != nil {
			return nil, fmt.Errorf("generator: variant %d: %w", v, o.err)
		}
		if o.res == nil {
			continue
		}
		scores[v] = o.res.Score.Total
		log.Debug("variant scored", zap.Int("variant", v), zap.Float64("score", o.res.Score.Total))
		if best < 0 || o.res.Score.Total > out[best].res.Score.Total {
			best = v
		}
	}
	if best < 0 {
		ns := out[0].infeasible
		log.Info("no solution", zap.String("reason", ns.String()))
		return &Result{Fingerprint: fp, Seed: seed, Meter: r.Meter, Variant: -1, Infeasible: ns, Scores: scores}, nil
	}
	res := out[best].res
	res.Fingerprint, res.Seed, res.Meter, res.Scores = fp, seed, r.Meter, scores
	if len(g.overrides) > 0 {
		res.Overrides = g.overrides
	}
	log.Info("variant selected", zap.Int("variant", best), zap.Float64("score", res.Score.Total),
		zap.Int("attacks", len(res.Attacks())))

	return res, nil
}

// variant runs the engine once under sub-seed SubSeed(seed, v).
func (g *Generator) variant(r *exercise.Resolved, seed int64, v int, log *zap.Logger) variant {
	src := rng.New(rng.SubSeed(seed, v))
	hg := harmony.NewGenerator(g.graph)

	// 1) Harmony.
	hs, err := hg.Generate(r, src.Derive(0))
	if err != nil {
		return variant{err: err}
	}

	// 2) Contour and rhythm per phrase; reused phrases vary their source.
	in := skeleton.Input{R: r, Harmony: hs}
	for p := 0; p < r.PhraseCount(); p++ {
		cp := contour.ParamsFor(r, p)
		rp := r.RhythmParams()
		rp.FirstMeasure = cp.FirstMeasure
		var plan contour.Plan
		var grid rhythm.Plan
		if from := r.ReuseSource(p); from >= 0 {
			plan = contour.Vary(in.Contours[from], cp, src.Derive(1, p))
			rp.Climax = plan.PeakMeasure
			grid = rhythm.Vary(in.Grids[from], rp, src.Derive(2, p))
			grid.Phrase = p
		} else {
			plan = contour.PlanPhrase(cp, src.Derive(1, p))
			rp.Climax = plan.PeakMeasure
			if grid, err = rhythm.PlanPhrase(rp, src.Derive(2, p)); err != nil {
				return variant{err: err}
			}
			grid.Phrase = p
		}
		in.Contours = append(in.Contours, plan)
		in.Grids = append(in.Grids, grid)
	}

	// 3) Skeleton.
	sk, err := skeleton.Build(in)
	if err != nil {
		var inf *skeleton.Infeasible
		if errors.As(err, &inf) {
			log.Debug("variant infeasible", zap.Error(err))
			return variant{infeasible: &NoSolution{
				Degrees:     inf.Degrees,
				Intervals:   inf.Intervals,
				Transitions: inf.Transitions,
				Phrase:      inf.Phrase,
				Measure:     inf.Measure,
				Beat:        inf.Beat,
				Reason:      inf.Reason,
			}}
		}
		return variant{err: err}
	}

	// 4) Realise and apply overrides.
	seq, err := embellish.Realize(embellish.Input{R: r, Harmony: hs, Grids: in.Grids, Anchors: sk.Anchors}, src.Derive(3))
	if err != nil {
		return variant{err: err}
	}
	g.applyOverrides(seq, r, log)

	// 5) Repair.
	opts := append([]repair.Option{repair.WithLogger(log)}, g.repairOpts...)
	rlog, err := repair.New(opts...).Run(seq, r, hs)
	if err != nil {
		return variant{err: err}
	}

	// 6) Score.
	sc := score.Score(score.Input{
		R:          r,
		Seq:        seq,
		Harmony:    hs,
		Generator:  hg,
		Unresolved: len(rlog.Unresolved()),
	}, g.weights)

	return variant{res: &Result{
		Variant:  v,
		Events:   seq.Events,
		Trace:    sk.Trace,
		Harmony:  hs,
		Contours: in.Contours,
		Grids:    in.Grids,
		Log:      rlog.Entries,
		Score:    sc,
	}}
}

// applyOverrides pitches and locks every attack named by an override, in
// attack-ID order. Unknown IDs and out-of-register pitches are skipped.
func (g *Generator) applyOverrides(seq *melody.Sequence, r *exercise.Resolved, log *zap.Logger) {
	if len(g.overrides) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(g.overrides))
	for id := range g.overrides {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a].String() < ids[b].String() })
	for _, id := range ids {
		i := seq.Find(id)
		midi := g.overrides[id]
		if i < 0 || !r.InRegister(midi) {
			log.Debug("override skipped", zap.Stringer("id", id), zap.Int("midi", midi))
			continue
		}
		seq.SetPitch(i, midi, ReasonEdited)
		seq.Events[i].Tags = seq.Events[i].Tags.With(melody.Edited)
	}
}
