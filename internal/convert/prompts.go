package convert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt is the backend-level instruction shared by every request.
// Backends that support a distinct system role send it there; others prepend
// it to the user prompt.
const SystemPrompt = `You are an expert VB6 to C# converter targeting .NET 9 Worker Services.
Return ONLY a valid JSON object. No markdown fences, no comments, no explanations outside the JSON.
Ensure complete and properly formatted JSON. Convert Windows API usage to P/Invoke declarations
with [DllImport], and map VB6 Type blocks to structs with [StructLayout] and [MarshalAs] where
marshalling matters.`

// modulePrompt formats: namespace, VB6 code.
const modulePrompt = `Convert the following VB6 Module (.bas) file to C# for a .NET 9 Worker Service.
IMPORTANT: Return ONLY a valid JSON object. No markdown fences, no comments, no explanations outside the JSON.
Use namespace: %s
Focus on:
1. Convert global variables to static properties in a Constants class
2. Convert functions/subroutines to static methods in service classes
3. Convert VB6 data types to C# equivalents (e.g., Long to int, Byte to byte)
4. Convert error handling to try-catch blocks
5. Update file I/O to modern .NET (System.IO)
6. Convert COM objects to .NET equivalents or P/Invoke for Windows API
7. Declare Windows API calls with proper [DllImport] attributes

VB6 Code:
%s

Return JSON structure:
{
  "Constants.cs": "C# code for constants class",
  "ModuleService.cs": "C# code for service class",
  "IModuleService.cs": "C# code for service interface"
}`

// classPrompt formats: namespace, VB6 code.
const classPrompt = `Convert the following VB6 Class (.cls) file to C# for .NET 9.
IMPORTANT: Return ONLY a valid JSON object. No markdown fences, no comments, no explanations outside the JSON.
Use namespace: %s
Focus on:
1. Convert properties to C# properties with get/set
2. Convert methods to C# methods
3. Convert events to C# events or delegates
4. Convert VB6 data types to C# equivalents (e.g., Long to int, Byte to byte)
5. Handle initialization in constructor and cleanup in Dispose
6. Convert error handling to try-catch
7. Implement IDisposable for resource management
8. Declare Windows API calls with [DllImport] and matching structs

VB6 Code:
%s

Return JSON structure:
{
  "Class.cs": "C# code for the converted class"
}`

// moduleChunkPrompt formats: chunk ordinal, total chunks, namespace,
// previous context, VB6 code.
const moduleChunkPrompt = `Convert this chunk of a VB6 .bas file (part %d of %d) to C# for .NET 9.
IMPORTANT: Return ONLY a valid JSON object. No markdown fences, no comments, no explanations outside the JSON.
Use namespace: %s
Focus on:
1. Maintain variable scope and naming
2. Convert functions/subs to C# methods
3. Convert VB6 data types to C# equivalents (e.g., Long to int, Byte to byte)
4. Declare Windows API calls with proper [DllImport] attributes
5. Convert error handling to try-catch
6. Modern .NET patterns (e.g., async/await where applicable)
Previous context summary: %s
VB6 Code Chunk:
%s

Return JSON structure:
{
  "Chunk.cs": "converted C# code",
  "ContextSummary": "brief context for next chunk including defined methods and variables"
}`

// classChunkPrompt formats: chunk ordinal, total chunks, namespace, class
// name, previous context, VB6 code.
const classChunkPrompt = `Convert this chunk of a VB6 .cls file (part %d of %d) to C# for .NET 9.
IMPORTANT: Return ONLY a valid JSON object. No markdown fences, no comments, no explanations outside the JSON.
Use namespace: %s
Class name: %s
Focus on:
1. Maintain class structure and inheritance
2. Convert properties to C# properties with get/set
3. Convert methods to C# methods with proper signatures
4. Convert VB6 data types to C# equivalents (e.g., Long to int, Byte to byte)
5. Declare Windows API calls with [DllImport] and matching structs
6. Use [StructLayout] and [MarshalAs] for P/Invoke structs
7. Convert error handling to try-catch
8. Preserve method boundaries and context
9. Handle arrays and memory management for P/Invoke (e.g., Marshal.AllocHGlobal, Marshal.FreeHGlobal)
Previous context summary: %s
VB6 Code Chunk:
%s

Return JSON structure:
{
  "ClassChunk.cs": "converted C# code chunk",
  "ContextSummary": "brief context for next chunk including class structure, defined methods and structs"
}`

// combinePrompt builds the model-assisted recombination prompt for a module
// unit: every partial result is serialized verbatim so the model can
// deduplicate methods across chunk boundaries.
func combinePrompt(parts []Result, unitName, namespace string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Combine the following C# code chunks from VB6 file '%s' into cohesive service files.
IMPORTANT: Return ONLY a valid JSON object. No markdown fences, no comments, no explanations outside the JSON.
Use namespace: %s
Ensure:
1. No duplicate method names
2. Proper class structure with static methods
3. Consistent naming and formatting
4. All necessary using statements (e.g., System.Runtime.InteropServices for P/Invoke)
5. Windows API integration with [DllImport] kept intact

Chunks:
`, unitName, namespace)

	for i, part := range parts {
		fmt.Fprintf(&sb, "--- Chunk %d ---\n", i+1)
		if blob, err := json.MarshalIndent(part, "", "  "); err == nil {
			sb.Write(blob)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`
Return JSON structure:
{
  "Constants.cs": "C# code for constants class",
  "ModuleService.cs": "C# code for service class",
  "IModuleService.cs": "C# code for service interface"
}`)
	return sb.String()
}
