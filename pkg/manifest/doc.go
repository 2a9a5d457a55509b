/*
Package manifest loads declarative stack definitions.

A manifest names the processes of a stack by registry identifier, in execution order:

	name: deploy
	rollback: true
	context:
	  env: prod
	processes:
	  - use: context.set
	    name: seed
	    with:
	      values: {region: eu}
	  - use: exec
	    with:
	      run: deploy             # a command registered by the operator
	      undo: {run: undeploy}

Files ending in .json are decoded as JSON, everything else as YAML.
*/
package manifest
