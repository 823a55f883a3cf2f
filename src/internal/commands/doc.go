// Package commands implements the keen-connectivity subcommands.
//
// Each command implements Runner: Init parses its flags and loads the
// configuration, Run does the work and Name is used for dispatch.
//
// # Available Commands
//
//   - service: run the connectivity manager with the route observer and HTTP API
//   - interfaces: list interface addresses usable for socket binding
//   - check-config: validate the configuration file and print every error
//
// # Example Usage
//
//	cmd := commands.CreateCheckConfigCommand()
//	ctx := &commands.AppContext{ConfigPath: "/opt/etc/keen-connectivity/keen-connectivity.conf"}
//	if err := cmd.Init(args, ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cmd.Run(); err != nil {
//	    log.Fatal(err)
//	}
package commands
