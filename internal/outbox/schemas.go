package outbox

const runRecordedSchema = `{
  "type": "object",
  "title": "RunRecorded",
  "properties": {
    "run_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "distance_km": {"type": "number", "exclusiveMinimum": 0, "maximum": 100},
    "duration_min": {"type": "integer", "minimum": 1, "maximum": 600},
    "avg_heart_rate": {"type": "integer", "minimum": 1, "maximum": 220},
    "workout_type": {"type": "string", "enum": ["Easy", "Tempo", "Intervals", "Long"]},
    "note": {"type": "string"},
    "pace_min_per_km": {"type": "number"},
    "recorded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["run_id", "date", "distance_km", "duration_min", "avg_heart_rate", "workout_type", "pace_min_per_km", "recorded_at"],
  "additionalProperties": false
}`

const goalUpdatedSchema = `{
  "type": "object",
  "title": "GoalUpdated",
  "properties": {
    "weekly_goal_km": {"type": "number", "exclusiveMinimum": 0, "maximum": 500},
    "previous_goal_km": {"type": "number"},
    "updated_at": {"type": "string", "format": "date-time"}
  },
  "required": ["weekly_goal_km", "previous_goal_km", "updated_at"],
  "additionalProperties": false
}`
