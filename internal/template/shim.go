package template

// ShimMarker identifies shim scripts written by latch. Install and
// uninstall refuse to touch hook files that do not carry it.
const ShimMarker = "# latch managed hook"

// HookScript is the shim installed under .git/hooks/<hook_type>. It
// prefers the binary recorded at install time, falls back to PATH, and
// chains a pre-existing hook preserved as <hook_type>.legacy before
// running the pipeline.
const HookScript = `#!/bin/sh
` + ShimMarker + `: {{hook_type}}
# Re-run 'latch install' after moving or upgrading the latch binary.

HERE="$(cd "$(dirname "$0")" && pwd -P)"

LEGACY="$HERE/{{hook_type}}.legacy"
if [ -x "$LEGACY" ]; then
    "$LEGACY" "$@" || exit $?
fi

if [ -x "{{binary}}" ]; then
    exec "{{binary}}" hook-impl --hook-type={{hook_type}} --hook-dir="$HERE" -- "$@"
fi
if command -v latch >/dev/null 2>&1; then
    exec latch hook-impl --hook-type={{hook_type}} --hook-dir="$HERE" -- "$@"
fi

echo "latch was not found and the {{hook_type}} hooks were not run" >&2
exit 1
`
