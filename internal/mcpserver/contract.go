package mcpserver

// ImportFormatContract describes the card-set document accepted by
// import_sets and produced by export_sets.
const ImportFormatContract = `# Study Cards Import Format

A card library is one JSON object. Each key is a set name; each value is an
array of cards.

` + "```" + `json
{
  "Math": [
    { "question": "1+1", "answer": "2" },
    { "question": "2+2", "answer": "4" }
  ],
  "Spanish": [
    { "question": "hola", "answer": "hello" }
  ]
}
` + "```" + `

## Rules

1. The top level MUST be an object. Arrays, strings and null are rejected.
2. A set whose value is not an array is skipped.
3. A card is kept only if it is an object with both ` + "`" + `question` + "`" + ` and ` + "`" + `answer` + "`" + `.
   Strings are used as-is; numbers and booleans become their literal text; null
   becomes an empty string. Object or array values drop the card.
4. A set with no valid card is skipped. If every set is skipped the import fails.
5. An imported set replaces any existing set with the same name.
6. ` + "`" + `id` + "`" + ` is optional. Exports always include it; re-importing an export keeps ids.
7. Stars are stored by set name and card position, not by card. Replacing or
   deleting a set does not clear its stars.

## Spreadsheets

The import_file tool also accepts .xlsx workbooks (one set per sheet, named after
the sheet) and .csv files (one set named after the file). Column A is the
question, column B the answer. A first row reading "question","answer" is skipped.
`
