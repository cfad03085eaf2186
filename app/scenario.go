package app

import (
	"log/slog"

	"github.com/pthm-cable/stellarforge/scenario"
	"github.com/pthm-cable/stellarforge/simerr"
)

func (a *App) scenarioManager() (*scenario.Manager, error) {
	if a.scenarios == nil {
		return nil, simerr.InvalidParameterf("scenario storage disabled")
	}
	return a.scenarios, nil
}

// SaveScenario stores the live state. An empty name picks a timestamped one.
func (a *App) SaveScenario(name string) (string, error) {
	m, err := a.scenarioManager()
	if err != nil {
		return "", err
	}
	params := a.params
	name, err = m.Save(name, &scenario.Scenario{
		Settings: scenario.Settings{
			Tick:       a.stepper.Tick(),
			Time:       a.stepper.Time(),
			Generation: &params,
			Camera:     a.camera,
		},
		Set: a.stepper.Particles(),
	})
	if err != nil {
		return "", err
	}
	slog.Info("scenario saved", "name", name, "dir", m.Dir(), "tick", a.stepper.Tick())
	return name, nil
}

// LoadScenario replaces the simulation with a saved state. The loaded
// particles become the new Reset target and the clock resumes from the
// saved tick.
func (a *App) LoadScenario(name string) error {
	m, err := a.scenarioManager()
	if err != nil {
		return err
	}
	sc, err := m.Load(name)
	if err != nil {
		return err
	}
	if err := a.install(sc.Set, nil, false); err != nil {
		return err
	}
	if sc.Generation != nil {
		a.params = *sc.Generation
	}
	a.camera = sc.Camera
	a.stepper.Restore(sc.Tick, sc.Time)
	a.timeline.clear(sc.Time)
	a.resetTelemetry()

	slog.Info("scenario loaded", "name", name, "particles", sc.Set.Len(), "tick", sc.Tick)
	return nil
}

// LatestScenario returns the most recently saved scenario name.
func (a *App) LatestScenario() (string, error) {
	m, err := a.scenarioManager()
	if err != nil {
		return "", err
	}
	return m.Latest()
}

// ExportScenario writes a saved scenario to path as a single JSON file,
// inlining particles up to scenario.export_limit. It reports whether
// particles were included.
func (a *App) ExportScenario(name, path string) (bool, error) {
	m, err := a.scenarioManager()
	if err != nil {
		return false, err
	}
	included, err := m.Export(name, path, a.cfg.Scenario.ExportLimit)
	if err != nil {
		return false, err
	}
	slog.Info("scenario exported", "name", name, "path", path, "particles", included)
	return included, nil
}

// SetCameraState records the viewer pose stored by the next SaveScenario.
func (a *App) SetCameraState(cs scenario.CameraState) { a.camera = &cs }

// CameraState returns the pose restored by the last LoadScenario or set by
// SetCameraState.
func (a *App) CameraState() (scenario.CameraState, bool) {
	if a.camera == nil {
		return scenario.CameraState{}, false
	}
	return *a.camera, true
}

// ListScenarios returns saved scenario names.
func (a *App) ListScenarios() ([]string, error) {
	m, err := a.scenarioManager()
	if err != nil {
		return nil, err
	}
	return m.List()
}

// DeleteScenario removes a saved scenario.
func (a *App) DeleteScenario(name string) (bool, error) {
	m, err := a.scenarioManager()
	if err != nil {
		return false, err
	}
	return m.Delete(name)
}
