// Package config provides persisted user preferences for starvectl.
//
// A YAML file stores the theme, the lab service URL, the poll interval and,
// per lab service, the interface and DHCP server used last time.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/starvectl/config.yaml or $HOME/.config/starvectl/config.yaml
//   - macOS: $HOME/.config/starvectl/config.yaml
//   - Windows: %LOCALAPPDATA%\starvectl\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    return err
//	}
//	registry.ToggleTheme()
//	if err := registry.Save(); err != nil {
//	    return err
//	}
//
// # File Format
//
//	version: 1
//	preferences:
//	  theme: dark
//	  api_url: http://192.168.56.10:5000
//	  last_interface: eth0
//	  poll_interval_ms: 500
//	services:
//	  http://192.168.56.10:5000:
//	    last_interface: eth0
//	    last_dhcp_server: 192.168.56.1
//
// Writes go to a temporary file that is renamed over the original.
package config
