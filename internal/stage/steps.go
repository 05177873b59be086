package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/msgctl/netaidkit-nakd/internal/shell"
	"github.com/msgctl/netaidkit-nakd/internal/uci"
	"github.com/msgctl/netaidkit-nakd/internal/vpn"
)

// HookToggler flips a UCI section's "enabled" option depending on whether
// the hook is an enable or disable hook, mirroring stage.c's toggle_rule.
type HookToggler struct {
	store *uci.Store
}

// NewHookToggler builds a HookToggler backed by store.
func NewHookToggler(store *uci.Store) *HookToggler {
	return &HookToggler{store: store}
}

// ApplyUciHooks scans every package for sections carrying
// nak_rule_enable/nak_rule_disable options and flips "enabled" on each
// whose value (or any list element) case-insensitively matches the target
// stage name, matching hooks.c's nakd_call_uci_hooks / _hook_foreach_cb.
func (h *HookToggler) ApplyUciHooks(ctx context.Context, s *Stage) error {
	packages, err := h.store.Packages()
	if err != nil {
		return fmt.Errorf("apply uci hooks: %w", err)
	}

	for _, pkg := range packages {
		sections, err := h.store.Sections(pkg)
		if err != nil {
			return fmt.Errorf("apply uci hooks: list sections of %q: %w", pkg, err)
		}
		for _, section := range sections {
			if err := h.applyHooksToSection(pkg, section, s.Name); err != nil {
				return err
			}
		}
	}
	if err := h.store.Commit(); err != nil {
		return fmt.Errorf("apply uci hooks: commit: %w", err)
	}
	return nil
}

func (h *HookToggler) applyHooksToSection(pkg, section, stageName string) error {
	for _, hookName := range []string{"nak_rule_enable", "nak_rule_disable"} {
		matched := false

		if v, ok := h.store.Get(pkg, section, hookName); ok && strings.EqualFold(v, stageName) {
			matched = true
		}
		if list, ok := h.store.ListOption(pkg, section, hookName); ok {
			for _, v := range list {
				if strings.EqualFold(v, stageName) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}

		enabled := "1"
		if hookName == "nak_rule_disable" {
			enabled = "0"
		}
		if err := h.store.Set(pkg, section, "enabled", enabled); err != nil {
			return fmt.Errorf("apply uci hooks: set %s.%s.enabled: %w", pkg, section, err)
		}
	}
	return nil
}

// ScriptRunner executes a stage's script, mirroring stage.c's
// nakd_run_stage_script. Each stage has exactly one script,
// <root>/<stage>.sh; other files under root are not run.
type ScriptRunner struct {
	executor shell.Executor
	root     string
}

// NewScriptRunner builds a ScriptRunner rooted at root (typically
// stage.script_root from configuration).
func NewScriptRunner(executor shell.Executor, root string) *ScriptRunner {
	return &ScriptRunner{executor: executor, root: root}
}

// RunStageScripts runs <root>/<stage>.sh if present and executable; a
// missing script is not an error, matching the original's access() check.
func (r *ScriptRunner) RunStageScripts(ctx context.Context, s *Stage) error {
	path := filepath.Join(r.root, s.Name+".sh")
	if !shell.Accessible(path) {
		return nil
	}
	out, err := r.executor.Run(ctx, path)
	if err != nil {
		return fmt.Errorf("run stage script %s: %w", path, err)
	}
	_ = out
	return nil
}

// VPNSteps adapts a vpn.Controller into StartVpn/StopVpn stage steps.
type VPNSteps struct {
	controller vpn.Controller
}

// NewVPNSteps builds a VPNSteps bound to controller.
func NewVPNSteps(controller vpn.Controller) *VPNSteps {
	return &VPNSteps{controller: controller}
}

// StopVpn stops the VPN process if running.
func (v *VPNSteps) StopVpn(ctx context.Context, s *Stage) error {
	return v.controller.Stop(ctx)
}

// StartVpn starts the VPN process.
func (v *VPNSteps) StartVpn(ctx context.Context, s *Stage) error {
	return v.controller.Start(ctx)
}

