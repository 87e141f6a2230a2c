// Package scaffold renders the static .NET 9 Worker Service files that
// surround the converted sources: project file, host entrypoint, worker loop,
// settings, and the conversion report.
package scaffold

import (
	"fmt"
	"strings"
	"time"
)

const csprojTemplate = `<Project Sdk="Microsoft.NET.Sdk.Worker">
  <PropertyGroup>
    <TargetFramework>net9.0</TargetFramework>
    <Nullable>enable</Nullable>
    <ImplicitUsings>enable</ImplicitUsings>
    <UserSecretsId>dotnet-%s-%s</UserSecretsId>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Microsoft.Extensions.Hosting" Version="9.0.0" />
    <PackageReference Include="Microsoft.Extensions.Logging" Version="9.0.0" />
    <PackageReference Include="Microsoft.Extensions.Configuration" Version="9.0.0" />
    <PackageReference Include="Microsoft.Extensions.Configuration.Json" Version="9.0.0" />
    <PackageReference Include="Newtonsoft.Json" Version="13.0.3" />
    <PackageReference Include="System.Data.SqlClient" Version="4.8.5" />
    <PackageReference Include="Serilog.Extensions.Hosting" Version="8.0.0" />
    <PackageReference Include="Serilog.Sinks.File" Version="5.0.0" />
    <PackageReference Include="Serilog.Sinks.Console" Version="5.0.0" />
  </ItemGroup>
</Project>
`

// Csproj renders the Worker Service project file.
func Csproj(projectName string) string {
	return fmt.Sprintf(csprojTemplate, projectName, time.Now().Format("20060102-150405"))
}

const programTemplate = `using %[1]s.Services;
using Microsoft.Extensions.DependencyInjection;
using Microsoft.Extensions.Hosting;
using Serilog;

var builder = Host.CreateApplicationBuilder(args);
builder.Services.AddHostedService<Worker>();
builder.Services.AddScoped<IModuleService, ModuleService>();
builder.Services.AddLogging(logging =>
{
    logging.AddSerilog(new LoggerConfiguration()
        .MinimumLevel.Information()
        .WriteTo.Console()
        .WriteTo.File("logs/worker_.log",
            rollingInterval: RollingInterval.Day,
            retainedFileCountLimit: 7)
        .CreateLogger());
});

var host = builder.Build();
host.Run();
`

// ProgramCS renders the host entrypoint.
func ProgramCS(namespace string) string {
	return fmt.Sprintf(programTemplate, namespace)
}

const workerTemplate = `using %[1]s.Services;
using Microsoft.Extensions.Logging;

namespace %[1]s;

public class Worker : BackgroundService
{
    private readonly ILogger<Worker> _logger;
    private readonly IModuleService _moduleService;

    public Worker(ILogger<Worker> logger, IModuleService moduleService)
    {
        _logger = logger;
        _moduleService = moduleService;
    }

    protected override async Task ExecuteAsync(CancellationToken stoppingToken)
    {
        while (!stoppingToken.IsCancellationRequested)
        {
            try
            {
                _logger.LogInformation("Worker running at: {time}", DateTimeOffset.Now);
                await _moduleService.ExecuteMainLogicAsync();
                await Task.Delay(1000, stoppingToken);
            }
            catch (Exception ex)
            {
                _logger.LogError(ex, "Error occurred executing the service");
                await Task.Delay(5000, stoppingToken);
            }
        }
    }
}
`

// WorkerCS renders the background worker that drives the converted module
// services.
func WorkerCS(namespace string) string {
	return fmt.Sprintf(workerTemplate, namespace)
}

const appSettings = `{
  "Logging": {
    "LogLevel": {
      "Default": "Information",
      "Microsoft.Hosting.Lifetime": "Information"
    }
  },
  "Serilog": {
    "MinimumLevel": {
      "Default": "Information",
      "Override": {
        "Microsoft": "Warning",
        "System": "Warning"
      }
    },
    "WriteTo": [
      {
        "Name": "Console"
      },
      {
        "Name": "File",
        "Args": {
          "path": "logs/worker_.log",
          "rollingInterval": "Day",
          "retainedFileCountLimit": 7
        }
      }
    ]
  }
}
`

// AppSettings renders appsettings.json with console and rolling file logging.
func AppSettings() string {
	return appSettings
}

const helperConstantsTemplate = `namespace %s.Helpers;

public static class Constants
{
    public const string APPLICATION_NAME = "%s";
    public const string VERSION = "1.0.0";
    public static readonly DateTime BUILD_DATE = DateTime.Parse("%s");
}
`

// HelperConstants renders the Helpers/Constants.cs stamped with the build
// time.
func HelperConstants(namespace, projectName string) string {
	return fmt.Sprintf(helperConstantsTemplate, namespace, projectName, time.Now().Format(time.RFC3339))
}

// README renders the conversion report included at the root of every
// generated project.
func README(projectName string, successful, failed, large []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s - Converted from VB6\n\n", projectName)
	sb.WriteString("## Conversion Summary\n")
	fmt.Fprintf(&sb, "- **Total files processed**: %d\n", len(successful)+len(failed))
	fmt.Fprintf(&sb, "- **Successfully converted**: %d\n", len(successful))
	fmt.Fprintf(&sb, "- **Failed conversions**: %d\n", len(failed))
	fmt.Fprintf(&sb, "- **Large files processed**: %d\n\n", len(large))

	sb.WriteString("## Large Files Handled\n")
	sb.WriteString(bulletList(large))
	sb.WriteString("\n## Failed Files\n")
	sb.WriteString(bulletList(failed))

	sb.WriteString(`
## Notes
This project was automatically converted from VB6 to C# for a .NET 9 Worker Service.
Large files were processed in chunks and reassembled.
CLS files were classified as 'model' or 'service' based on content:
- Models: Placed in the Models directory (mostly properties).
- Services: Placed in the Services directory (Windows API calls or multiple methods).
Review generated [DllImport] declarations against the original DLLs and test on a target machine.
Manual review and testing is recommended.

## Running the Service
`)
	sb.WriteString("```bash\ndotnet restore\ndotnet build\ndotnet run\n```\n")
	sb.WriteString(`
## Dependencies
- .NET 9.0
- Microsoft.Extensions.Hosting
- Serilog for logging
`)
	return sb.String()
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "None\n"
	}
	var sb strings.Builder
	for _, item := range items {
		fmt.Fprintf(&sb, "- %s\n", item)
	}
	return sb.String()
}
