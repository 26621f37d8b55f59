//go:build windows
// +build windows

package capture

func defaultBackends() []Backend {
	return []Backend{MonitorUnion{}, VirtualScreen{}, PrimaryDisplay{}}
}
