// Package registry provides implementations of the package collaborator that
// the scratch Manager consults to decide which consumers are still alive.
//
// Three implementations are provided:
//
//   - Static: an in-memory registry whose contents are set programmatically.
//     Useful in tests and for embedding applications that already know their
//     installed packages.
//   - Directory: reads a package layout from a filesystem, where each
//     subdirectory of packages/<owner-uuid>/ is one installed version.
//   - Command: queries an external package tool through the exec module.
//
// All three satisfy scratch.Registry:
//
//	reg := registry.NewStatic()
//	reg.Install(owner, "/pkgs/owner/v1")
//	reg.SetProject("/work/app/manifest.json")
//	m, err := scratch.New(scratch.WithRegistry(reg))
package registry
