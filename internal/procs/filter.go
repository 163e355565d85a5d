package procs

import "strings"

// defaultExcludedNames mirrors the desktop and system services a user
// never wants to kill from a process manager: session infrastructure,
// portals, agents, audio plumbing and login shells.
var defaultExcludedNames = []string{
	// Desktop environment
	"xfce4-panel", "xfce4-session", "xfce4-notifyd", "xfwm4", "xfdesktop",
	"Thunar", "thunar", "xfconfd", "xfsettingsd", "xfce4-power-manager",
	// System services
	"dbus-daemon", "dbus-broker", "dbus-broker-launch", "dbus-launch",
	"at-spi-bus-launcher", "at-spi2-registryd", "dconf-service",
	"gvfsd", "gvfsd-fuse", "gvfsd-metadata", "gvfsd-trash",
	"ibus-daemon", "ibus-extension-gtk3", "ibus-portal", "ibus-dconf",
	"ibus-engine-simple", "ibus-ui-gtk3",
	"polkitd", "polkit-agent-helper-1", "polkit-gnome-authentication-agent-1",
	"ssh-agent", "gpg-agent", "gnome-keyring-daemon", "agent",
	"pulseaudio", "pipewire", "pipewire-pulse", "wireplumber",
	"xdg-desktop-portal", "xdg-document-portal", "xdg-permission-store",
	"localsearch-extractor-3", "localsearch-3",
	"copyq", "Xorg", "xrdp", "xrdp-sesman", "xrdp-chansrv",
	"systemd", "init", "login", "bash", "zsh", "sh", "fish",
	"wrapper-2.0", "panel-wrapper", "tumblerd",
	// Sandboxing / container internals
	"bwrap", "slirp4netns", "conmon", "catatonit", "aardvark-dns", "netavark",
	"rootlessport", "rootlessport-child", "pasta",
	// Helpers
	"abrt-applet", "inotifywait", "gjs", "gcr-prompter",
	"fusermount3", "fusermount",
	"glycin-image-rs", "glycin-svg", "glycin-heif",
	"imsettings-daemon", "nm-applet", "xfce-polkit", "xfce4-screensaver",
	"fortitray", "fortitraylauncher",
	"Xvfb", "wsdd", "dnfdragora-updater",
}

var defaultExcludedPrefixes = []string{"gvfs", "xdg-", "at-spi", "ibus-", "glycin-", "("}

// Filter decides which enumerated processes belong in a snapshot.
type Filter struct {
	SelfPID  int32
	OwnUID   uint32
	names    map[string]struct{}
	prefixes []string
}

// FilterOptions overrides the built-in exclusion lists. Nil slices keep
// the defaults; Extra always appends to the name set.
type FilterOptions struct {
	Names    []string
	Prefixes []string
	Extra    []string
}

// NewFilter builds a filter for the given invoking process and user.
func NewFilter(selfPID int32, ownUID uint32, opts FilterOptions) *Filter {
	names := opts.Names
	if names == nil {
		names = defaultExcludedNames
	}
	prefixes := opts.Prefixes
	if prefixes == nil {
		prefixes = defaultExcludedPrefixes
	}
	set := make(map[string]struct{}, len(names)+len(opts.Extra))
	for _, name := range names {
		set[name] = struct{}{}
	}
	for _, name := range opts.Extra {
		set[name] = struct{}{}
	}
	return &Filter{
		SelfPID:  selfPID,
		OwnUID:   ownUID,
		names:    set,
		prefixes: append([]string(nil), prefixes...),
	}
}

// Keep reports whether a record belongs in the snapshot. The uid is the
// process's real UID as read during enumeration.
func (f *Filter) Keep(rec Record, uid uint32) bool {
	if rec.PID == f.SelfPID {
		return false
	}
	if uid != f.OwnUID {
		return false
	}
	// Kernel threads and zombies expose no command line.
	if strings.TrimSpace(rec.Cmdline) == "" {
		return false
	}
	if _, excluded := f.names[rec.Name]; excluded {
		return false
	}
	for _, prefix := range f.prefixes {
		if strings.HasPrefix(rec.Name, prefix) {
			return false
		}
	}
	return true
}
