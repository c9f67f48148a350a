package installer

import "fmt"

// Action is one effect of an install plan
type Action interface {
	fmt.Stringer
	action()
}

// InstallAPK installs an APK given relative to the game directory
type InstallAPK struct {
	Path string
}

// PushDirectory copies a local file or directory to the device
type PushDirectory struct {
	LocalPath  string
	RemotePath string
}

// Shell is a raw device shell command, run only if the allow-list permits it
type Shell struct {
	Command string
}

func (InstallAPK) action()    {}
func (PushDirectory) action() {}
func (Shell) action()         {}

func (a InstallAPK) String() string    { return "install " + a.Path }
func (a PushDirectory) String() string { return "push " + a.LocalPath + " " + a.RemotePath }
func (a Shell) String() string         { return "shell " + a.Command }

// Plan is the ordered set of actions for one install plus parse warnings
type Plan struct {
	Actions  []Action
	Warnings []string
	// FromScript is set when the plan came from install.txt
	FromScript bool
}

// UninstallOptions controls cleanup after an uninstall
type UninstallOptions struct {
	KeepObb  bool `json:"keep_obb"`
	KeepData bool `json:"keep_data"`
}

// Report summarises an executed plan
type Report struct {
	Warnings        []string `json:"warnings"`
	ExecutedActions int      `json:"executed_actions"`
}

// Failed reports whether nothing ran
func (r Report) Failed() bool {
	return r.ExecutedActions == 0
}
