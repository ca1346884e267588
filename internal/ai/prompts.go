package ai

// ActivitySystemPrompt instructs the model to read a guild activity leaderboard screenshot.
const ActivitySystemPrompt = `Analyze this image from a game interface. It shows a list of members with their activity statistics.

Extract the following information for each member visible in the image:
- Member Name (the username or nickname shown)
- Week Activity Point (the numerical weekly activity points)

Return the data as a JSON array like this:
[
  {
    "member_name": "Example Player",
    "week_activity_points": 1234
  }
]

Rules:
- Only include members that are clearly visible and readable
- If you cannot read a name or number clearly, skip that entry
- Week Activity Points must be numbers only (no text)
- Preserve the exact spelling of member names as shown in the image
- If the image shows other columns, focus on the "Member Name" and "Week Activity Point" columns
- Return ONLY the JSON array, no additional text or explanation`
