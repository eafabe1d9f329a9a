package difftest

import (
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds verification settings.
type Config struct {
	Programs  int    // number of programs to generate
	Length    int    // maximum instructions per program
	Steps     int    // step limit per run (defaults to 2*Length+1)
	Mutations int    // mutated variants checked per program
	Workers   int    // defaults to NumCPU
	Seed      uint64 // program i is generated from PCG(Seed, i)
	Verbose   bool
}

// Run generates and checks cfg.Programs programs. log receives progress
// and each failure; the processors and machines under test log to it too.
func Run(cfg Config, log *logrus.Entry) *Report {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Length <= 0 {
		cfg.Length = 8
	}
	if cfg.Steps <= 0 {
		cfg.Steps = 2*cfg.Length + 1 // every instruction may carry a prefix
	}

	tasks := make([]Task, cfg.Programs)
	for i := range tasks {
		tasks[i] = Task{Index: i}
	}

	report := &Report{}
	pool := NewWorkerPool(cfg.Workers)
	start := time.Now()

	pool.RunTasks(tasks, func(t Task) int {
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(t.Index)))
		gen := NewGenerator(rng, cfg.Length)
		prog := gen.Program()

		failures := 0
		for v := 0; v <= cfg.Mutations; v++ {
			if v > 0 {
				prog = gen.Mutate(prog)
			}
			for _, f := range Check(prog, log, cfg.Steps, 1+rng.IntN(cfg.Steps)) {
				f.Program, f.Variant = t.Index, v
				report.Add(f)
				failures++
				log.WithFields(logrus.Fields{
					"program": t.Index,
					"variant": v,
					"check":   f.Check,
				}).Error(f.Err)
			}
		}
		return failures
	})

	checked, failed := pool.Stats()
	report.Checked = checked
	if cfg.Verbose {
		log.WithFields(logrus.Fields{
			"checked": checked,
			"failed":  failed,
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("verify done")
	}
	return report
}

// Check runs every check on p. split is the step after which the
// checkpoint check interrupts the run.
func Check(p *Program, log *logrus.Entry, maxSteps, split int) []Failure {
	var out []Failure
	if err := checkRepeat(p, log, maxSteps); err != nil {
		out = append(out, Failure{Check: "repeat", Err: err, Code: p.Code()})
	}
	if err := checkCheckpoint(p, log, maxSteps, split); err != nil {
		out = append(out, Failure{Check: "checkpoint", Err: err, Code: p.Code()})
	}
	if err := checkDisasm(p, log, maxSteps); err != nil {
		out = append(out, Failure{Check: "disasm", Err: err, Code: p.Code()})
	}
	return out
}
