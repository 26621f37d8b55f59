//go:build !windows
// +build !windows

package capture

// No virtual-screen metrics outside Windows
func defaultBackends() []Backend {
	return []Backend{MonitorUnion{}, PrimaryDisplay{}}
}
