package buildinfo

import "runtime/debug"

// Set through -ldflags "-X liftsched/internal/buildinfo.Version=...".
var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

// Info reports the linker-stamped values, falling back to the VCS data the
// go toolchain embeds.
func Info() map[string]string {
    out := map[string]string{
        "version": Version,
        "commit":  Commit,
        "builtAt": BuiltAt,
    }
    if bi, ok := debug.ReadBuildInfo(); ok {
        out["go"] = bi.GoVersion
        for _, s := range bi.Settings {
            switch s.Key {
            case "vcs.revision":
                if out["commit"] == "" { out["commit"] = s.Value }
            case "vcs.time":
                if out["builtAt"] == "" { out["builtAt"] = s.Value }
            }
        }
    }
    return out
}
