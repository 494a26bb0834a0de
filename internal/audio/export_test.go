package audio

// Exported aliases for internal symbols, used by the external test package.

import "context"

var ExtractDShowDeviceName = extractDShowDeviceName

func NewLoopbackError(wrapped error, help string) error {
	return &loopbackError{wrapped: wrapped, help: help}
}

var LoopbackInstallInstructionsDarwin = loopbackInstallInstructionsDarwin
var LoopbackInstallInstructionsLinux = loopbackInstallInstructionsLinux
var LoopbackInstallInstructionsWindows = loopbackInstallInstructionsWindows

type ShellCommandRunner = shellCommandRunner

func DetectLoopbackLinuxWithRunner(ctx context.Context, runner ShellCommandRunner) (*Device, error) {
	return detectLoopbackLinuxWithRunner(ctx, runner)
}
