/*
Package dsl provides a Go DSL for programmatically constructing stack manifests.

It is the type-checked alternative to writing YAML: the builder produces the same
manifest.Manifest that manifest.Load returns, so it can be validated, built against
a registry and run the same way.

Example usage:

	m, err := dsl.New("deploy").
		Context("env", "prod").
		Add("context.set").Named("seed").With("values", map[string]any{"region": "eu"}).
		Add("exec").Run("migrate").UndoRun("rollback").
		Build()
	if err != nil {
		return err
	}
	reg := builtin.NewRegistry(
		builtin.WithCommand("migrate", "./migrate.sh"),
		builtin.WithCommand("rollback", "./rollback.sh"),
	)
	stack, ec, err := m.Build(reg)
*/
package dsl
